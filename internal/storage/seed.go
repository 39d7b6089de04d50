package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// Seed is a JSON file of tasks and owners loaded into the store at boot.
type Seed struct {
	Tasks  []model.WatchTask `json:"tasks,omitempty"`
	Owners []model.Owner     `json:"owners,omitempty"`
}

func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Seed
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &s, nil
}

// ApplySeed upserts owners and inserts tasks that do not exist yet.
// Existing tasks keep their state (re-seeding must not reset LastExecution).
func ApplySeed(ctx context.Context, st Store, seed *Seed) error {
	for i := range seed.Owners {
		if err := st.SaveOwner(ctx, &seed.Owners[i]); err != nil {
			return err
		}
	}
	for i := range seed.Tasks {
		t := seed.Tasks[i]
		if t.ID == "" {
			return fmt.Errorf("seed task %d: id is required", i)
		}
		if _, err := st.GetTask(ctx, t.ID); err == nil {
			continue
		}
		if t.Options.HitTime < 1 {
			t.Options.HitTime = 1
		}
		if err := st.SaveTask(ctx, &t); err != nil {
			return err
		}
	}
	return nil
}
