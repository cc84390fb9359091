package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// Thumbnails reads the per-game embed thumbnails from the assets checkout
// and keeps them in memory after the first read.
type Thumbnails struct {
	dir string

	mu    sync.Mutex
	cache map[models.Game][]byte
}

func NewThumbnails(assetsDir string) *Thumbnails {
	return &Thumbnails{
		dir:   filepath.Join(assetsDir, "genshin-impact", "thumbnails"),
		cache: make(map[models.Game][]byte),
	}
}

// Thumbnail returns the image of a game, nil if the file is missing
func (t *Thumbnails) Thumbnail(game models.Game) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.cache[game]; ok {
		return b
	}
	b, err := os.ReadFile(filepath.Join(t.dir, game.Thumbnail()))
	if err != nil {
		logger.Warn(fmt.Sprintf("Thumbnail of %s unavailable: %v", game, err), "Assets")
		return nil
	}
	t.cache[game] = b
	return b
}
