package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// invoiceExtensions are the file types picked up when walking directories
var invoiceExtensions = []string{".xml"}

// signedExtensions adds the signed containers accepted by verify
var signedExtensions = []string{".xml", ".p7m"}

// collectFiles expands globs and directories into a list of files with one
// of the given extensions. Explicit file arguments are always kept.
func collectFiles(args []string, extensions []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				if match == arg || hasExtension(match, extensions) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.WalkDir(match, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && hasExtension(path, extensions) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found")
	}
	return files, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// readInvoice reads a file as document text
func readInvoice(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
