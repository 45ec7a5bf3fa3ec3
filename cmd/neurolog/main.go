// Command neurolog is the NeuroLog client CLI: log in, queue media files
// and bulk-upload them to a running server, or pack a DICOM series
// directory into a single radiology archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/coldfire85/neurolog/internal/client"
)

const usage = `Usage:
  neurolog login  -server URL -email EMAIL -password PASSWORD
  neurolog upload -server URL -token TOKEN [-max N] FILE...
  neurolog pack   DIR

Commands:
  login   Exchange credentials for a session token (printed to stdout).
  upload  Queue the given files and upload them one at a time.
  pack    Zip the DICOM files under DIR into DIR.zip for radiology upload.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(os.Args[2:])
	case "upload":
		err = runUpload(os.Args[2:])
	case "pack":
		err = runPack(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "server base URL")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required")
	}

	token, err := client.Login(context.Background(), *server, *email, *password)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	server := fs.String("server", "http://localhost:8080", "server base URL")
	token := fs.String("token", "", "session token from 'neurolog login'")
	maxFiles := fs.Int("max", 10, "maximum files per batch")
	fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("no files provided")
	}
	if *token == "" {
		return fmt.Errorf("a session token is required (-token)")
	}

	candidates := make([]client.Candidate, 0, len(paths))
	for _, p := range paths {
		cand, err := client.NewCandidateFromFile(p)
		if err != nil {
			return err
		}
		candidates = append(candidates, cand)
	}

	uploader := client.NewBatchUploader(
		client.NewClient(*server, *token),
		client.WithMaxFiles(*maxFiles),
	)

	added, skipped, err := uploader.AddFiles(candidates)
	if err != nil {
		return fmt.Errorf("%w (max %d)", err, *maxFiles)
	}
	for _, s := range skipped {
		fmt.Printf("skipped %s: %v\n", s.Name, s.Reason)
	}
	if len(added) == 0 {
		return fmt.Errorf("nothing to upload")
	}

	fmt.Printf("Uploading %d file(s)...\n", len(added))
	completed := uploader.UploadAll(context.Background())

	for _, f := range uploader.Files() {
		switch f.Status {
		case client.StatusCompleted:
			fmt.Printf("  ok    %-30s %s\n", f.Name, f.URL)
		case client.StatusError:
			fmt.Printf("  fail  %-30s %s\n", f.Name, f.Message)
		}
	}

	fmt.Printf("Done: %d of %d uploaded.\n", len(completed), len(added))
	if len(completed) < len(added) {
		return fmt.Errorf("some uploads failed")
	}
	return nil
}

func runPack(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("pack takes exactly one directory")
	}

	zipPath, count, err := client.PackDICOMSeries(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Packed %d DICOM file(s) into %s\n", count, zipPath)
	return nil
}
