package utils

import (
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// Extensions maps a driver mode to the suffix of the file it writes.
var Extensions = map[string]string{
	"koopa": ".koopa",
	"riscv": ".S",
	"llvm":  ".ll",
	"ast":   ".ast",
	"run":   ".out",
}

// OutputPath derives the output file for input in the given mode: the input's
// base name with its extension replaced, placed in outDir if set and next to
// the input otherwise.
func OutputPath(input, mode, outDir string) (string, error) {
	fullPath, parentDir, err := GetPathInfo(input)
	if err != nil {
		return "", err
	}
	base := filepath.Base(fullPath)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + Extensions[mode]

	dir := parentDir
	if outDir != "" {
		dir = outDir
	}
	return filepath.Join(dir, base), nil
}
