package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes a session file on disk.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	// StartedAt is parsed from the file name; zero for foreign names.
	StartedAt time.Time
}

// List returns the .csv files in dir, newest first. A missing directory
// holds no sessions.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), fileExt) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Size:      fi.Size(),
			ModTime:   fi.ModTime(),
			StartedAt: ParseStartTime(e.Name()),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		a, b := infos[i].sortKey(), infos[j].sortKey()
		if a.Equal(b) {
			return infos[i].Name > infos[j].Name
		}
		return a.After(b)
	})
	return infos, nil
}

func (i Info) sortKey() time.Time {
	if !i.StartedAt.IsZero() {
		return i.StartedAt
	}
	return i.ModTime
}

// Latest returns the newest session in dir, or "" when there is none.
func Latest(dir string) (string, error) {
	infos, err := List(dir)
	if err != nil || len(infos) == 0 {
		return "", err
	}
	return infos[0].Path, nil
}

// ParseStartTime extracts the local start time from a session file name.
func ParseStartTime(name string) time.Time {
	name = strings.TrimSuffix(filepath.Base(name), fileExt)
	if !strings.HasPrefix(name, filePrefix) {
		return time.Time{}
	}
	stamp := strings.TrimPrefix(name, filePrefix)
	if len(stamp) < len(timeLayout) {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timeLayout, stamp[:len(timeLayout)], time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
