package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/importer/erp"
)

type Service struct {
	erpImporter Importer
}

func NewService() *Service {
	return &Service{
		erpImporter: erp.NewParser(),
	}
}

func (s *Service) Import(source Source, r io.Reader) ([]document.Payload, error) {
	var importer Importer

	switch source {
	case SourceERP, "":
		importer = s.erpImporter
	default:
		return nil, fmt.Errorf("unknown source: %s", source)
	}

	return importer.Parse(r)
}
