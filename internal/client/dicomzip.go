package client

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PackDICOMSeries zips the DICOM files found under dir (recursively) into
// a new archive next to the source directory, named after it. The archive
// can then be queued as a single radiology upload. Returns the archive
// path and the number of files packed.
func PackDICOMSeries(dir string) (string, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", 0, fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", 0, fmt.Errorf("%s is not a directory", dir)
	}

	zipPath := filepath.Join(filepath.Dir(dir), filepath.Base(dir)+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	count := 0

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dcm") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if err := addFileToZip(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})

	if err == nil {
		err = zw.Close()
	} else {
		zw.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		return "", 0, fmt.Errorf("failed to pack series: %w", err)
	}

	if count == 0 {
		os.Remove(zipPath)
		return "", 0, fmt.Errorf("no DICOM files found under %s", dir)
	}

	return zipPath, count, nil
}

func addFileToZip(zw *zip.Writer, srcPath, archivePath string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", srcPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header: %w", err)
	}
	header.Name = archivePath
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("failed to write file to zip: %w", err)
	}

	return nil
}
