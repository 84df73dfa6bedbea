package osm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 64 * 1024 * 1024

type rawMember struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

type rawChange struct {
	Action  string      `json:"action"`
	Type    string      `json:"type"`
	ID      int64       `json:"id"`
	Lon     *float64    `json:"lon"`
	Lat     *float64    `json:"lat"`
	Tags    Tags        `json:"tags"`
	Nodes   []int64     `json:"nodes"`
	Members []rawMember `json:"members"`
}

// Reader reads a change stream with one JSON object per line.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadChanges sends every change of the stream to changes and closes the
// channel when the stream is exhausted or an error occurs.
func (rd *Reader) ReadChanges(ctx context.Context, changes chan<- Change) error {
	defer close(changes)

	scanner := bufio.NewScanner(rd.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		change, err := decodeChange([]byte(line))
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		select {
		case changes <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func decodeChange(data []byte) (Change, error) {
	var raw rawChange
	if err := json.Unmarshal(data, &raw); err != nil {
		return Change{}, err
	}

	var change Change
	switch raw.Action {
	case "", "create":
		change.Action = Create
	case "modify":
		change.Action = Modify
	case "delete":
		change.Action = Delete
	default:
		return change, fmt.Errorf("unknown action %q", raw.Action)
	}

	itemType, ok := ParseItemType(raw.Type)
	if !ok || itemType == AreaType {
		return change, fmt.Errorf("unknown entity type %q", raw.Type)
	}
	if raw.Tags == nil {
		raw.Tags = Tags{}
	}

	switch itemType {
	case NodeType:
		n := &Node{ID: raw.ID, Tags: raw.Tags}
		if raw.Lon != nil && raw.Lat != nil {
			n.Loc = NewLocation(*raw.Lon, *raw.Lat)
		}
		change.Node = n
	case WayType:
		change.Way = WayFromRefs(raw.ID, raw.Nodes, raw.Tags)
	case RelationType:
		rel := &Relation{ID: raw.ID, Tags: raw.Tags}
		for _, m := range raw.Members {
			mt, ok := ParseItemType(m.Type)
			if !ok || mt == AreaType {
				return change, fmt.Errorf("relation %d: unknown member type %q", raw.ID, m.Type)
			}
			rel.Members = append(rel.Members, Member{Type: mt, Ref: m.Ref, Role: m.Role})
		}
		change.Relation = rel
	}
	return change, nil
}
