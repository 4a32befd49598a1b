package main

import (
	"errors"
	"flag"
)

// config is the minimal set of options spec.md §6 names: everything
// else (TLS termination, routing dispatch, CLI ergonomics) belongs to
// the out-of-scope outer server.
type config struct {
	ListenPort uint16
	UploadPath string
	CertFile   string
	KeyFile    string
}

func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("airdropd", flag.ContinueOnError)
	listenPort := fs.Uint("listen_port", 0, "HTTPS bind port (required)")
	uploadPath := fs.String("upload_path", "", "directory completed extractions are exposed under (required)")
	certFile := fs.String("cert_file", "", "TLS certificate file")
	keyFile := fs.String("key_file", "", "TLS key file")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if *listenPort == 0 {
		return config{}, errors.New("airdropd: -listen_port is required")
	}
	if *uploadPath == "" {
		return config{}, errors.New("airdropd: -upload_path is required")
	}

	return config{
		ListenPort: uint16(*listenPort),
		UploadPath: *uploadPath,
		CertFile:   *certFile,
		KeyFile:    *keyFile,
	}, nil
}
