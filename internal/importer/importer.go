package importer

import (
	"io"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// Source identifies the system an export was produced by.
type Source string

const (
	SourceERP Source = "erp"
)

type Importer interface {
	Parse(r io.Reader) ([]document.Payload, error)
}
