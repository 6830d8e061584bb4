package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// assemble writes the images, in order, as the pages of a new pdf at outPath. Every page is
// sized to its image. Nothing is left at outPath when assembly fails.
func assemble(images []string, outPath string) error {
	disableConfigDir.Do(api.DisableConfigDir)

	partPath := outPath + ".part"
	// pdfcpu appends to an existing file
	err := os.Remove(partPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &AssemblyError{OutputPath: outPath, Err: err}
	}

	conf := model.NewDefaultConfiguration()
	err = api.ImportImagesFile(images, partPath, nil, conf)
	if err != nil {
		os.Remove(partPath)
		return &AssemblyError{OutputPath: outPath, Err: fmt.Errorf("import images: %w", err)}
	}

	err = os.Rename(partPath, outPath)
	if err != nil {
		os.Remove(partPath)
		return &AssemblyError{OutputPath: outPath, Err: err}
	}
	return nil
}
