package plist

// DiscoverRequest is the body of a POST /Discover.
type DiscoverRequest struct {
	SenderRecordData []byte `plist:"SenderRecordData,omitempty"`
}

// DiscoverResponse is the reply to a successful /Discover.
type DiscoverResponse struct {
	ReceiverComputerName      string `plist:"ReceiverComputerName"`
	ReceiverModelName         string `plist:"ReceiverModelName"`
	ReceiverMediaCapabilities []byte `plist:"ReceiverMediaCapabilities"`
}

// AskFile describes one file offered in an AskRequest's file list.
type AskFile struct {
	Name                string `plist:"FileName"`
	Type                string `plist:"FileType"`
	IsDirectory         bool   `plist:"FileIsDirectory"`
	ConvertMediaFormats bool   `plist:"ConvertMediaFormats"`
	BomPath             string `plist:"FileBomPath,omitempty"`
}

// AskRequest is the body of a POST /Ask.
type AskRequest struct {
	SenderComputerName string    `plist:"SenderComputerName"`
	SenderModelName    string    `plist:"SenderModelName"`
	SenderID           string    `plist:"SenderID"`
	BundleID           string    `plist:"BundleID"`
	FileIcon           []byte    `plist:"FileIcon,omitempty"`
	Files              []AskFile `plist:"Files"`
	SenderRecordData   []byte    `plist:"SenderRecordData,omitempty"`
}

// AskResponse is the reply to a successful (accepted) /Ask.
type AskResponse struct {
	ReceiverComputerName string `plist:"ReceiverComputerName"`
	ReceiverModelName    string `plist:"ReceiverModelName"`
}
