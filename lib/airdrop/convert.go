package airdrop

import (
	"github.com/airbridge/airdropd/lib/peer"
	"github.com/airbridge/airdropd/lib/plist"
)

// toPeerAskRequest translates the plist wire shape the sender posted
// into the transport-agnostic shape the peer channel forwards to the
// back-end peer.
func toPeerAskRequest(req plist.AskRequest) peer.AskRequest {
	files := make([]peer.AskFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = peer.AskFile{
			Name:                f.Name,
			Type:                f.Type,
			IsDirectory:         f.IsDirectory,
			ConvertMediaFormats: f.ConvertMediaFormats,
			BomPath:             f.BomPath,
		}
	}
	return peer.AskRequest{
		SenderComputerName: req.SenderComputerName,
		SenderModelName:    req.SenderModelName,
		SenderID:           req.SenderID,
		BundleID:           req.BundleID,
		FileIcon:           req.FileIcon,
		Files:              files,
		SenderRecordData:   req.SenderRecordData,
	}
}
