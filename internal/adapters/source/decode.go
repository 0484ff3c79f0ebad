package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/okian/quizboard/internal/domain/model"
)

type wireEntry struct {
	Name     json.RawMessage `json:"name"`
	NameSlug json.RawMessage `json:"nameSlug"`
	Score    json.RawMessage `json:"score"`
}

// decodeQuiz parses one quiz board: an object of submission id -> entry, or an array when
// the database stored the board under keys 0..n (the index becomes the submission id).
// JSON null is an empty board, as are null array slots. Submissions that are not objects
// are skipped and counted.
func decodeQuiz(quizID string, data []byte) (map[string]model.RawEntry, int, error) {
	data = bytes.TrimSpace(data)
	out := make(map[string]model.RawEntry)
	if len(data) == 0 || bytes.Equal(data, null) {
		return out, 0, nil
	}

	raw, err := boardItems(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: quiz %s: %w", ErrDecode, quizID, err)
	}

	skipped := 0
	for id, msg := range raw {
		var w wireEntry
		if err := json.Unmarshal(msg, &w); err != nil {
			skipped++
			continue
		}
		out[id] = model.RawEntry{
			QuizID:   quizID,
			SourceID: id,
			Name:     stringValue(w.Name),
			NameSlug: stringValue(w.NameSlug),
			Score:    scoreValue(w.Score),
		}
	}
	return out, skipped, nil
}

var null = []byte("null")

func boardItems(data []byte) (map[string]json.RawMessage, error) {
	if data[0] != '[' {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	raw := make(map[string]json.RawMessage, len(list))
	for i, msg := range list {
		if bytes.Equal(bytes.TrimSpace(msg), null) {
			continue
		}
		raw[strconv.Itoa(i)] = msg
	}
	return raw, nil
}

func stringValue(msg json.RawMessage) string {
	var s string
	if len(msg) == 0 || json.Unmarshal(msg, &s) != nil {
		return ""
	}
	return s
}

// scoreValue accepts JSON numbers only; anything else is a missing score.
func scoreValue(msg json.RawMessage) *float64 {
	var v float64
	if len(msg) == 0 || json.Unmarshal(msg, &v) != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// decodeExport parses a full export: {quiz: board} or {"leaderboard": {quiz: board}}.
func decodeExport(data []byte) (map[string]map[string]model.RawEntry, int, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, 0, fmt.Errorf("%w: export: %w", ErrDecode, err)
	}
	if inner, ok := root["leaderboard"]; ok && len(root) == 1 {
		root = nil
		if err := json.Unmarshal(inner, &root); err != nil {
			return nil, 0, fmt.Errorf("%w: export leaderboard: %w", ErrDecode, err)
		}
	}

	ids := make([]string, 0, len(root))
	for id := range root {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	quizzes := make(map[string]map[string]model.RawEntry, len(root))
	skipped := 0
	for _, id := range ids {
		board, n, err := decodeQuiz(id, root[id])
		if err != nil {
			return nil, 0, err
		}
		skipped += n
		quizzes[id] = board
	}
	return quizzes, skipped, nil
}
