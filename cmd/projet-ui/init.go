package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eneky/projet-ui/internal/config"
	"github.com/eneky/projet-ui/internal/errors"
)

const starterPage = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Projet</title>
  <link rel="stylesheet" href="/static/css/output.css">
</head>
<body class="bg-gray-bg text-text-primary dark:bg-dark-bg dark:text-dark-text-primary">
  <header class="flex justify-end p-4">
    <button id="theme-toggle" type="button" aria-label="Toggle theme">
      <svg class="w-5 h-5" viewBox="0 0 24 24"></svg>
    </button>
  </header>
  <main class="max-w-md mx-auto p-6">
    <form action="/login" method="post" data-submit="intercept" data-success-message="Welcome back">
      <label for="email">Email</label>
      <input id="email" name="email" type="email" required>
      <label for="password">Password</label>
      <input id="password" name="password" type="password" required>
      <button type="submit">Sign in</button>
    </form>
  </main>
</body>
</html>
`

const starterCSS = `@tailwind base;
@tailwind components;
@tailwind utilities;
`

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create projet.json and a starter page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return initProject(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing projet.json")
	return cmd
}

func initProject(dir string, force bool) error {
	if config.Exists(dir) && !force {
		return errors.New("E104").
			WithDetail("A configuration file already exists in " + dir).
			WithSuggestion("Use --force to overwrite it")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	cfg := config.New()
	cfg.Name = filepath.Base(mustAbs(dir))
	if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		return err
	}
	success("Created %s", filepath.Join(dir, config.ConfigFileName))

	files := map[string]string{
		filepath.Join(dir, cfg.Pages.Dir, "index.html"): starterPage,
		filepath.Join(dir, cfg.Tailwind.Input):          starterCSS,
	}
	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			info("Kept %s", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
		success("Created %s", path)
	}

	info("Next: cd %s && projet-ui serve", dir)
	return nil
}

func mustAbs(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
