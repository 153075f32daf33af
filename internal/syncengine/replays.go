package syncengine

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/joe/client-sync/pkg/filesystem"
)

// Replay file naming: <prefix>_<YYMMDDhhmm>_<player1>_VS_<player2>.rda, with spaces in
// player names written as hyphens.
const (
	// ReplaysDir holds recorded matches, relative to the install root
	ReplaysDir = "game/replays"
	// ReplayExtension is matched case-insensitively
	ReplayExtension = ".rda"

	replayDateDigits = 10
	replayDateLayout = "200601021504"
)

var replayPlayers = regexp.MustCompile(`^(.+)_VS_(.+)$`)

// Replay is a recorded match under ReplaysDir.
type Replay struct {
	Name    string
	Size    int64
	ModTime time.Time

	// Date is nil when the name carries no date or one later than now
	Date          *time.Time
	Player1       string
	Player2       string
	IsValidFormat bool
}

// ListReplays lists recorded matches: dated replays newest first, then undated ones
// by name. Only .rda files are listed. A missing replays directory yields an empty list.
func (e *Engine) ListReplays() ([]Replay, error) {
	dir := filesystem.Join(e.root, ReplaysDir)

	infos, err := afero.ReadDir(e.fsys, dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Replay{}, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "list %s", ReplaysDir)
	}

	now := e.clock.Now()
	replays := make([]Replay, 0, len(infos))

	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(info.Name()), ReplayExtension) {
			continue
		}

		replay := ParseReplayName(info.Name(), now)
		replay.Size = info.Size()
		replay.ModTime = info.ModTime()
		replays = append(replays, replay)
	}

	sortReplays(replays)

	return replays, nil
}

// ParseReplayName extracts the match date and players from a replay file name. The
// date is read in local time and dropped when it is after now. IsValidFormat is set
// only when both the date and the players were found.
func ParseReplayName(name string, now time.Time) Replay {
	replay := Replay{Name: name}

	stem := name
	if strings.HasSuffix(strings.ToLower(stem), ReplayExtension) {
		stem = stem[:len(stem)-len(ReplayExtension)]
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return replay
	}

	dateIndex := -1

	for i, part := range parts {
		if isReplayDate(part) {
			dateIndex = i

			break
		}
	}

	if dateIndex < 0 {
		return replay
	}

	date, err := time.ParseInLocation(replayDateLayout, "20"+parts[dateIndex], time.Local)
	if err != nil || date.After(now) {
		return replay
	}

	replay.Date = &date

	match := replayPlayers.FindStringSubmatch(strings.Join(parts[dateIndex+1:], "_"))
	if match == nil {
		return replay
	}

	replay.Player1 = strings.ReplaceAll(match[1], "-", " ")
	replay.Player2 = strings.ReplaceAll(match[2], "-", " ")
	replay.IsValidFormat = true

	return replay
}

// sortReplays orders dated replays newest first, followed by undated ones by name.
func sortReplays(replays []Replay) {
	sort.SliceStable(replays, func(i, j int) bool {
		a, b := replays[i], replays[j]

		switch {
		case a.Date != nil && b.Date != nil:
			if !a.Date.Equal(*b.Date) {
				return a.Date.After(*b.Date)
			}

			return a.Name < b.Name
		case a.Date != nil:
			return true
		case b.Date != nil:
			return false
		default:
			return a.Name < b.Name
		}
	})
}

func isReplayDate(part string) bool {
	if len(part) != replayDateDigits {
		return false
	}

	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
