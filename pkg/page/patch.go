package page

// Op identifies a patch operation understood by the browser client.
type Op string

const (
	// OpAppend appends HTML as the last child of HID.
	OpAppend Op = "append"
	// OpInsertAfter inserts HTML as the next sibling of HID.
	OpInsertAfter Op = "insertAfter"
	// OpRemove removes the element HID.
	OpRemove Op = "remove"
	// OpInner replaces the children of HID with HTML.
	OpInner Op = "inner"
	// OpSetAttr sets attribute Key of HID to Value.
	OpSetAttr Op = "setAttr"
	// OpRemoveAttr removes attribute Key from HID.
	OpRemoveAttr Op = "removeAttr"
	// OpStorage writes Key=Value to the browser's local storage.
	OpStorage Op = "storage"
)

// Patch is one DOM change to replay in the browser.
type Patch struct {
	Op    Op     `json:"op"`
	HID   string `json:"hid,omitempty"`
	HTML  string `json:"html,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}
