package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoRecord is returned by stores when no profile record exists for
// the requested user code.
var ErrNoRecord = errors.New("no profile record")

// NotFoundError reports that an explicitly requested user code resolved
// to no record.
type NotFoundError struct {
	UserCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile record not found for user code %q", e.UserCode)
}

// LoadError reports any other failure while resolving preferences. It is
// fatal to the request that triggered the load.
type LoadError struct {
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load preferences: %v", e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Store resolves a raw profile record by user code. An empty user code
// means "pick any one record".
type Store interface {
	FetchRecord(ctx context.Context, userCode string) (json.RawMessage, error)
}

// Loader turns heterogeneous persisted profile records into canonical
// Preferences. Profile records accumulate mixed encodings over time
// (macros as objects or JSON-encoded strings, lists as arrays or
// comma-joined text), so every sub-field goes through a tolerant decode
// here and nothing downstream re-inspects types.
type Loader struct {
	store Store
}

// NewLoader creates a Loader over the given store. A nil store always
// yields the default preferences.
func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Load resolves and normalizes the profile for userCode. With an empty
// userCode it takes any available record, falling back to hardcoded
// defaults when the store is empty. A decode failure in a sub-field
// degrades that field to its default; only the top-level fetch is fatal.
func (l *Loader) Load(ctx context.Context, userCode string) (*Preferences, error) {
	if l.store == nil {
		return DefaultPreferences(), nil
	}

	record, err := l.store.FetchRecord(ctx, userCode)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			if userCode != "" {
				return nil, &NotFoundError{UserCode: userCode}
			}
			return DefaultPreferences(), nil
		}
		return nil, &LoadError{Cause: err}
	}

	return Normalize(record)
}

type rawRecord struct {
	CaloriesPerDay    json.RawMessage `json:"calories_per_day"`
	Macros            json.RawMessage `json:"macros"`
	Allergies         json.RawMessage `json:"allergies"`
	Limitations       json.RawMessage `json:"limitations"`
	MealCount         json.RawMessage `json:"meal_count"`
	Region            json.RawMessage `json:"region"`
	ClientPreference  json.RawMessage `json:"client_preference"`
	MealPlanStructure json.RawMessage `json:"meal_plan_structure"`
}

// Normalize decodes one raw profile record into canonical Preferences.
func Normalize(record json.RawMessage) (*Preferences, error) {
	var raw rawRecord
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, &LoadError{Cause: fmt.Errorf("failed to decode profile record: %w", err)}
	}

	defaults := DefaultPreferences()

	prefs := &Preferences{
		CaloriesPerDay:    decodeNumber(raw.CaloriesPerDay, defaults.CaloriesPerDay),
		Macros:            decodeGramMap(raw.Macros),
		Allergies:         decodeStringList(raw.Allergies),
		Limitations:       decodeStringList(raw.Limitations),
		MealCount:         decodeInt(raw.MealCount, defaults.MealCount),
		Region:            decodeString(raw.Region, defaults.Region),
		ClientPreference:  decodeMap(raw.ClientPreference),
		MealPlanStructure: decodeMap(raw.MealPlanStructure),
	}

	if prefs.CaloriesPerDay <= 0 {
		prefs.CaloriesPerDay = defaults.CaloriesPerDay
	}
	if len(prefs.Macros) == 0 {
		prefs.Macros = defaults.Macros
	}
	if prefs.MealCount < 1 || prefs.MealCount > 10 {
		prefs.MealCount = defaults.MealCount
	}
	return prefs, nil
}

func decodeNumber(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			return v
		}
	}
	return fallback
}

func decodeInt(raw json.RawMessage, fallback int) int {
	return int(math.Round(decodeNumber(raw, float64(fallback))))
}

func decodeString(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// decodeStringList accepts a JSON array, a JSON-encoded array inside a
// string, or plain comma-separated text.
func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list)
	}

	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, v := range mixed {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return cleanList(out)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return cleanList(list)
		}
		return nil
	}
	return cleanList(strings.Split(s, ","))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeGramMap accepts a JSON object or a JSON-encoded object inside a
// string; values may be numbers or gram strings like "170" / "170g".
func decodeGramMap(raw json.RawMessage) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil
		}
	}

	out := make(map[string]float64, len(m))
	for k, v := range m {
		if grams, ok := parseGrams(v); ok {
			out[strings.ToLower(strings.TrimSpace(k))] = grams
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseGrams(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimSuffix(s, "g")
		s = strings.TrimSuffix(s, "G")
		s = strings.TrimSpace(s)
		g, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return g, true
	default:
		return 0, false
	}
}

func decodeMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil
		}
	}
	return m
}
