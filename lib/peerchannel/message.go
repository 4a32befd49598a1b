package peerchannel

import (
	"encoding/json"
	"fmt"

	"github.com/airbridge/airdropd/lib/peer"
)

// Message is the bridge's in-memory view of one hub message
// (spec.md §3): a tagged union identified by which of the payload
// fields below is non-nil, carrying a unique id and, for replies, the
// id of the request it answers.
type Message struct {
	ID      string
	ReplyTo string

	Connect            *ConnectPayload
	AskRequest         *peer.AskRequest
	AskResponse        *AskResponsePayload
	FileUploadRequest  *FileUploadRequestPayload
	FileUploadResponse *FileUploadResponsePayload
}

// ConnectPayload is the peer's initial handshake, which sets its
// display name (spec.md §4.6).
type ConnectPayload struct {
	DisplayName string `json:"display_name"`
}

// AskResponsePayload is the peer's answer to an askRequest.
type AskResponsePayload struct {
	Accepted bool `json:"accepted"`
}

// FileUploadRequestPayload notifies the peer that a file has landed
// and is downloadable at URL.
type FileUploadRequestPayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileUploadResponsePayload is the peer's ack of a
// FileUploadRequestPayload.
type FileUploadResponsePayload struct{}

// wireAskFile mirrors peer.AskFile with the JSON field names the hub
// message wire format uses.
type wireAskFile struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	IsDirectory         bool   `json:"is_directory"`
	ConvertMediaFormats bool   `json:"convert_media_formats"`
	BomPath             string `json:"bom_path,omitempty"`
}

type wireAskRequest struct {
	SenderComputerName string        `json:"sender_computer_name"`
	SenderModelName    string        `json:"sender_model_name"`
	SenderID           string        `json:"sender_id"`
	BundleID           string        `json:"bundle_id"`
	FileIcon           []byte        `json:"file_icon,omitempty"`
	Files              []wireAskFile `json:"files"`
	SenderRecordData   []byte        `json:"sender_record_data,omitempty"`
}

func toWireAskRequest(r *peer.AskRequest) *wireAskRequest {
	files := make([]wireAskFile, len(r.Files))
	for i, f := range r.Files {
		files[i] = wireAskFile{
			Name:                f.Name,
			Type:                f.Type,
			IsDirectory:         f.IsDirectory,
			ConvertMediaFormats: f.ConvertMediaFormats,
			BomPath:             f.BomPath,
		}
	}
	return &wireAskRequest{
		SenderComputerName: r.SenderComputerName,
		SenderModelName:    r.SenderModelName,
		SenderID:           r.SenderID,
		BundleID:           r.BundleID,
		FileIcon:           r.FileIcon,
		Files:              files,
		SenderRecordData:   r.SenderRecordData,
	}
}

func (w *wireAskRequest) toPeer() *peer.AskRequest {
	files := make([]peer.AskFile, len(w.Files))
	for i, f := range w.Files {
		files[i] = peer.AskFile{
			Name:                f.Name,
			Type:                f.Type,
			IsDirectory:         f.IsDirectory,
			ConvertMediaFormats: f.ConvertMediaFormats,
			BomPath:             f.BomPath,
		}
	}
	return &peer.AskRequest{
		SenderComputerName: w.SenderComputerName,
		SenderModelName:    w.SenderModelName,
		SenderID:           w.SenderID,
		BundleID:           w.BundleID,
		FileIcon:           w.FileIcon,
		Files:              files,
		SenderRecordData:   w.SenderRecordData,
	}
}

// wireMessage is the on-wire envelope: a single top-level key names
// the variant, per spec.md §9's "polymorphic messages" design note.
type wireMessage struct {
	ID      string `json:"id"`
	ReplyTo string `json:"reply_to,omitempty"`

	ConnectField            *ConnectPayload            `json:"connect,omitempty"`
	AskRequestField         *wireAskRequest            `json:"askRequest,omitempty"`
	AskResponseField        *AskResponsePayload        `json:"askResponse,omitempty"`
	FileUploadRequestField  *FileUploadRequestPayload  `json:"fileUploadRequest,omitempty"`
	FileUploadResponseField *FileUploadResponsePayload `json:"fileUploadResponse,omitempty"`
}

// MarshalJSON implements the tagged-union encode side: it projects
// Message's non-nil payload field onto the matching wire key.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{ID: m.ID, ReplyTo: m.ReplyTo}
	switch {
	case m.Connect != nil:
		w.ConnectField = m.Connect
	case m.AskRequest != nil:
		w.AskRequestField = toWireAskRequest(m.AskRequest)
	case m.AskResponse != nil:
		w.AskResponseField = m.AskResponse
	case m.FileUploadRequest != nil:
		w.FileUploadRequestField = m.FileUploadRequest
	case m.FileUploadResponse != nil:
		w.FileUploadResponseField = m.FileUploadResponse
	default:
		return nil, fmt.Errorf("peerchannel: message %s has no payload set", m.ID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements the tagged-union decode side: it picks the
// one wire key that is present and builds the matching Message field.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{ID: w.ID, ReplyTo: w.ReplyTo}
	switch {
	case w.ConnectField != nil:
		m.Connect = w.ConnectField
	case w.AskRequestField != nil:
		m.AskRequest = w.AskRequestField.toPeer()
	case w.AskResponseField != nil:
		m.AskResponse = w.AskResponseField
	case w.FileUploadRequestField != nil:
		m.FileUploadRequest = w.FileUploadRequestField
	case w.FileUploadResponseField != nil:
		m.FileUploadResponse = w.FileUploadResponseField
	default:
		return fmt.Errorf("peerchannel: message %s has no recognised variant", w.ID)
	}
	return nil
}
