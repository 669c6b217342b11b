package pactrecorder

import (
	"sort"
	"strings"
	"sync"
)

// Interactions is the registry of interactions recorded in the current session, keyed by
// description. Aliases are indexed apart, so a test titled like another test's alias is
// still its own interaction.
type Interactions struct {
	interactions sync.Map
	aliases      sync.Map
}

func (i *Interactions) Record(description, alias, method, path, pact string) *recordedInteraction {
	value, _ := i.interactions.LoadOrStore(description, newRecordedInteraction(description, alias))
	interaction := value.(*recordedInteraction)
	if alias != "" {
		i.aliases.Store(alias, interaction)
	}
	interaction.StoreRecord(method, path, pact)
	return interaction
}

func (i *Interactions) Clear() {
	for _, m := range []*sync.Map{&i.interactions, &i.aliases} {
		m.Range(func(k, _ interface{}) bool {
			m.Delete(k)
			return true
		})
	}
}

// Load finds an interaction by description, then by alias with or without its @.
func (i *Interactions) Load(key string) (*recordedInteraction, bool) {
	if result, ok := i.interactions.Load(key); ok {
		return result.(*recordedInteraction), true
	}
	if result, ok := i.aliases.Load(strings.TrimPrefix(key, "@")); ok {
		return result.(*recordedInteraction), true
	}
	return nil, false
}

func (i *Interactions) All() []*recordedInteraction {
	var interactions []*recordedInteraction
	i.interactions.Range(func(_, v interface{}) bool {
		interactions = append(interactions, v.(*recordedInteraction))
		return true
	})

	sort.Slice(interactions, func(a, b int) bool {
		return interactions[a].description < interactions[b].description
	})
	return interactions
}

func (i *Interactions) Summaries(alias string) []InteractionSummary {
	alias = strings.TrimPrefix(alias, "@")
	var summaries []InteractionSummary
	for _, interaction := range i.All() {
		summary := interaction.Summary()
		if alias != "" && summary.Alias != alias {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (i *Interactions) Count() int {
	return len(i.All())
}
