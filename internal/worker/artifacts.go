package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// Artifacts writes page snapshots under a date-partitioned tree:
// <root>/html/<yyyymmdd>/<link id>.html and <root>/shots/<yyyymmdd>/<link id>.png.
type Artifacts struct {
	Root string
}

// Save persists the HTML snapshot and screenshot for a link and returns
// their paths. An empty screenshot is skipped, not an error.
func (a Artifacts) Save(linkID int64, html string, screenshot []byte) (htmlPath, shotPath string, err error) {
	day := time.Now().UTC().Format("20060102")

	htmlPath = filepath.Join(a.Root, "html", day, fmt.Sprintf("%d.html", linkID))
	if err := writeFile(htmlPath, []byte(html)); err != nil {
		return "", "", eris.Wrapf(err, "worker: save html for link %d", linkID)
	}

	if len(screenshot) > 0 {
		shotPath = filepath.Join(a.Root, "shots", day, fmt.Sprintf("%d.png", linkID))
		if err := writeFile(shotPath, screenshot); err != nil {
			return "", "", eris.Wrapf(err, "worker: save screenshot for link %d", linkID)
		}
	}

	return htmlPath, shotPath, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
