package execution

import (
	"context"
	"maps"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/config"
	"github.com/odvcencio/synthetics/pkg/journey"
)

// JourneysFromConfig builds runnable journeys from suite definitions.
// Journey params are layered over the suite params. A step with a URL
// navigates the driver there; a step without one does nothing.
func JourneysFromConfig(cfg *config.Config, driver browser.Driver) []*journey.Journey {
	out := make([]*journey.Journey, 0, len(cfg.Journeys))
	for _, def := range cfg.Journeys {
		j := journey.New(def.Name)
		maps.Copy(j.Params, cfg.Params)
		maps.Copy(j.Params, def.Params)
		for _, s := range def.Steps {
			j.AddStep(journey.NewStep(s.Name, navigateStep(driver, s.URL)))
		}
		out = append(out, j)
	}
	return out
}

func navigateStep(driver browser.Driver, url string) journey.StepFunc {
	if url == "" {
		return nil
	}
	return func(ctx context.Context) error {
		if driver == nil {
			return browser.ErrUnavailable
		}
		return driver.Navigate(ctx, url)
	}
}
