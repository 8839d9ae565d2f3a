package extract

import (
	"bufio"
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/habitsim/internal/models"
)

// habitNamespace scopes the name-based ids given to habits imported from plain text.
var habitNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("habitsim:habit"))

// parsePlain treats each non-blank line as a habit name. A tab separates an optional
// description. Ids are derived from the name, so re-importing a file is idempotent.
// Invalid UTF-8 sequences are replaced with the replacement character.
func parsePlain(content []byte) []models.Habit {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	habits := []models.Habit{}
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		name, desc, _ := strings.Cut(sc.Text(), "\t")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		h := models.Habit{
			ID:   PlainID(name),
			Name: models.StringPtr(name),
		}
		if d := strings.TrimSpace(desc); d != "" {
			h.Description = models.StringPtr(d)
		}
		habits = append(habits, h)
	}
	return habits
}

// PlainID returns the id given to a habit imported by name.
func PlainID(name string) string {
	return uuid.NewSHA1(habitNamespace, []byte(strings.ToLower(name))).String()
}
