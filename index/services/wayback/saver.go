package wayback

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/common/util"
)

// PageSaver writes raw CDX result pages under a base directory, in the layout
// the importer's CDX discovery walks: <base>/<escaped url>/data/<time>-<page>.json
type PageSaver struct {
	base string
}

func NewPageSaver(base string) *PageSaver {
	return &PageSaver{base: base}
}

// Save writes one raw result page and returns the path it was written to.
func (s *PageSaver) Save(requestURL string, fetchedAt time.Time, page *CdxPage) (string, error) {
	dir := filepath.Join(s.base, util.EscapeFileName(requestURL), "data")
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return "", errors.Wrap(err, "error making CDX page directory")
	}
	name := fmt.Sprintf("%s-%03d.json", fetchedAt.UTC().Format(models.TimestampLayout), page.Number)
	path := filepath.Join(dir, name)
	err = os.WriteFile(path, page.RawBody, 0600)
	if err != nil {
		return "", errors.Wrapf(err, "error writing CDX page %s", path)
	}
	return path, nil
}
