package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDocumentProperties verifies properties of the ADF document wrapper.
func TestDocumentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: wrapping text in a document and flattening it back is lossless
	properties.Property("NewDocument/PlainText round-trip preserves text", prop.ForAll(
		func(text string) bool {
			return NewDocument(text).PlainText() == text
		},
		gen.AnyString(),
	))

	// Property: the serialized document always carries the fixed envelope
	properties.Property("serialized document has the doc envelope", prop.ForAll(
		func(text string) bool {
			data, err := json.Marshal(NewDocument(text))
			if err != nil {
				return false
			}
			var decoded Document
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false
			}
			return decoded.Type == "doc" && decoded.Version == 1 && len(decoded.Content) == 1
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestFlexibleIDProperties verifies that IDs decode identically whether the
// tracker emits them as strings or numbers.
func TestFlexibleIDProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("numeric and quoted IDs decode to the same value", prop.ForAll(
		func(n int64) bool {
			raw := strconv.FormatInt(n, 10)

			var fromNumber, fromString FlexibleID
			if err := json.Unmarshal([]byte(raw), &fromNumber); err != nil {
				return false
			}
			if err := json.Unmarshal([]byte(`"`+raw+`"`), &fromString); err != nil {
				return false
			}
			return fromNumber == fromString && fromNumber.String() == raw
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestFindTransitionProperties verifies the transition name lookup over
// generated transition sets.
func TestFindTransitionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	genNames := gen.SliceOf(gen.Identifier())

	// Property: any listed name matches regardless of requested-name case
	properties.Property("listed names match case-insensitively", prop.ForAll(
		func(names []string, pick uint, upper bool) bool {
			if len(names) == 0 {
				return true
			}
			transitions := make([]Transition, len(names))
			for i, name := range names {
				transitions[i] = Transition{ID: FlexibleID(strconv.Itoa(i)), Name: name}
			}

			target := names[int(pick)%len(names)]
			requested := strings.ToLower(target)
			if upper {
				requested = strings.ToUpper(target)
			}

			transition, found := FindTransition(transitions, requested)
			return found && strings.EqualFold(transition.Name, target)
		},
		genNames, gen.UInt(), gen.Bool(),
	))

	// Property: a name absent from the set never resolves
	properties.Property("unlisted names never resolve", prop.ForAll(
		func(names []string, requested string) bool {
			transitions := make([]Transition, len(names))
			for i, name := range names {
				transitions[i] = Transition{ID: FlexibleID(strconv.Itoa(i)), Name: name}
			}
			for _, name := range names {
				if strings.EqualFold(name, requested) {
					return true
				}
			}
			_, found := FindTransition(transitions, requested)
			return !found
		},
		genNames, gen.Identifier(),
	))

	// Property: TransitionNames preserves order and length
	properties.Property("TransitionNames preserves order", prop.ForAll(
		func(names []string) bool {
			transitions := make([]Transition, len(names))
			for i, name := range names {
				transitions[i] = Transition{Name: name}
			}
			got := TransitionNames(transitions)
			if len(got) != len(names) {
				return false
			}
			for i := range names {
				if got[i] != names[i] {
					return false
				}
			}
			return true
		},
		genNames,
	))

	properties.TestingRun(t)
}

// TestConfigValidationProperties verifies that incomplete credentials never
// pass validation.
func TestConfigValidationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("config without an API token is always invalid", prop.ForAll(
		func(username string) bool {
			config := &Config{
				Jira: JiraConfig{
					BaseURL:  "https://example.atlassian.net",
					Username: username,
				},
				Transport: TransportConfig{Type: "stdio"},
			}
			return config.Validate() != nil
		},
		gen.AnyString(),
	))

	properties.Property("http transport requires a port in range", prop.ForAll(
		func(port int) bool {
			config := &Config{
				Jira: JiraConfig{
					BaseURL:  "https://example.atlassian.net",
					Username: "user@example.com",
					APIToken: "token123",
				},
				Transport: TransportConfig{
					Type: "http",
					HTTP: HTTPConfig{Host: "localhost", Port: port},
				},
			}
			err := config.Validate()
			if port >= 1 && port <= 65535 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-100, 70000),
	))

	properties.TestingRun(t)
}
