package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"parcelvoice/internal/models"

	"gopkg.in/yaml.v3"
)

// helpSeed is one entry of the YAML seed file.
type helpSeed struct {
	CommandType     string            `yaml:"command_type"`
	ContextID       string            `yaml:"context_id"`
	Title           string            `yaml:"title"`
	ExamplePhrases  []string          `yaml:"example_phrases"`
	Description     string            `yaml:"description"`
	Parameters      map[string]string `yaml:"parameters"`
	ResponseExample string            `yaml:"response_example"`
	Priority        int               `yaml:"priority"`
	Hidden          bool              `yaml:"hidden"`
}

// SeedFromFile upserts the built-in help entries from a YAML file. Entries
// are keyed by (command_type, title): existing ones are updated in place so
// re-seeding on every boot is safe.
func (s *HelpService) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read help seeds: %w", err)
	}

	var seeds []helpSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to parse help seeds: %w", err)
	}

	seeded := 0
	for _, seed := range seeds {
		req := &models.CreateHelpContentRequest{
			CommandType:     models.CommandType(seed.CommandType),
			ContextID:       seed.ContextID,
			Title:           seed.Title,
			ExamplePhrases:  seed.ExamplePhrases,
			Description:     seed.Description,
			Parameters:      seed.Parameters,
			ResponseExample: seed.ResponseExample,
			Priority:        seed.Priority,
			IsHidden:        seed.Hidden,
		}

		existing, err := s.findByTypeAndTitle(ctx, req.CommandType, req.Title)
		if err != nil {
			log.Printf("⚠️  [HELP] Failed to look up seed %q: %v", seed.Title, err)
			continue
		}
		if existing != nil {
			if _, err := s.Update(ctx, existing.ID, req); err != nil {
				log.Printf("⚠️  [HELP] Failed to update seed %q: %v", seed.Title, err)
				continue
			}
		} else {
			if _, err := s.Create(ctx, req); err != nil {
				log.Printf("⚠️  [HELP] Failed to create seed %q: %v", seed.Title, err)
				continue
			}
		}
		seeded++
	}

	log.Printf("✅ Seeded %d help entries", seeded)
	return nil
}

func (s *HelpService) findByTypeAndTitle(ctx context.Context, ct models.CommandType, title string) (*models.HelpContent, error) {
	entries, err := s.queryHelp(ctx,
		selectHelpColumns+" WHERE command_type = ? AND title = ?",
		string(ct), title,
	)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}
