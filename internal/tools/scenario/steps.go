package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/generator"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "generate":
		return r.runGenerate(ctx, state, step.Args)
	case "render":
		return r.runRender(ctx, state, step.Args)
	case "expect":
		return r.runExpect(ctx, state, step.Args)
	case "share":
		return r.runShare(ctx, state, step.Args)
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func (r *Runner) runGenerate(ctx context.Context, state *scenarioState, args map[string]any) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	generated, err := r.svc.GenerateCard(ctx, r.actor, req)
	if err != nil {
		return fmt.Errorf("generate card: %w", err)
	}

	tag := stringArg(args, "tag")
	if tag == "" {
		tag = generated.ID
	}
	state.cards[tag] = generated.ID
	state.lastTag = tag
	r.logf("generated card %s (tag %s, seed %d)", generated.ID, tag, generated.Seed)
	return nil
}

func (r *Runner) runRender(ctx context.Context, state *scenarioState, args map[string]any) error {
	tag, id, err := r.resolveCard(state, args)
	if err != nil {
		return err
	}

	doc, err := r.svc.RenderCardSVG(ctx, r.actor, id)
	if err != nil {
		return fmt.Errorf("render card %s: %w", tag, err)
	}

	out := stringArg(args, "out")
	if out == "" {
		out = tag + ".svg"
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(r.outDir, out)
	}
	if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	r.logf("rendered card %s to %s", tag, out)
	return nil
}

func (r *Runner) runExpect(ctx context.Context, state *scenarioState, args map[string]any) error {
	tag, id, err := r.resolveCard(state, args)
	if err != nil {
		return err
	}

	c, err := r.svc.GetCard(ctx, r.actor, id)
	if err != nil {
		return fmt.Errorf("get card %s: %w", tag, err)
	}

	if want, ok := args["mode"].(string); ok && string(c.Mode) != want {
		if err := r.assertf("%s: mode = %s, want %s", tag, c.Mode, want); err != nil {
			return err
		}
	}
	if want, ok := intArg(args, "seed"); ok && c.Seed != int64(want) {
		if err := r.assertf("%s: seed = %d, want %d", tag, c.Seed, want); err != nil {
			return err
		}
	}
	if want, ok := args["replicable"].(bool); ok && c.Replicable != want {
		if err := r.assertf("%s: replicable = %v, want %v", tag, c.Replicable, want); err != nil {
			return err
		}
	}
	if want, ok := intArg(args, "zones"); ok && len(c.Content.DeploymentZones) != want {
		if err := r.assertf("%s: zones = %d, want %d", tag, len(c.Content.DeploymentZones), want); err != nil {
			return err
		}
	}
	if want, ok := intArg(args, "min_score"); ok && c.Content.MatchedScore < want {
		if err := r.assertf("%s: matched score = %d, want >= %d", tag, c.Content.MatchedScore, want); err != nil {
			return err
		}
	}
	if want, ok := intArg(args, "max_score"); ok && c.Content.MatchedScore > want {
		if err := r.assertf("%s: matched score = %d, want <= %d", tag, c.Content.MatchedScore, want); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runShare(ctx context.Context, state *scenarioState, args map[string]any) error {
	tag, id, err := r.resolveCard(state, args)
	if err != nil {
		return err
	}

	visibility, err := card.ParseVisibility(stringArg(args, "visibility"))
	if err != nil {
		return fmt.Errorf("share card %s: %w", tag, err)
	}
	var sharedWith []string
	if raw, ok := args["with"].([]any); ok {
		for _, entry := range raw {
			if user, ok := entry.(string); ok {
				sharedWith = append(sharedWith, user)
			}
		}
	}

	if _, err := r.svc.UpdateSharing(ctx, r.actor, id, visibility, sharedWith); err != nil {
		return fmt.Errorf("share card %s: %w", tag, err)
	}
	r.logf("shared card %s as %s", tag, visibility)
	return nil
}

// resolveCard maps a step's tag argument to a generated card ID. An
// absent tag means the most recent generate.
func (r *Runner) resolveCard(state *scenarioState, args map[string]any) (string, string, error) {
	tag := stringArg(args, "tag")
	if tag == "" {
		tag = state.lastTag
	}
	if tag == "" {
		return "", "", r.failf("no card generated yet")
	}
	id, ok := state.cards[tag]
	if !ok {
		return "", "", r.failf("unknown card tag %q", tag)
	}
	return tag, id, nil
}

// buildRequest translates loose Lua arguments into a generation request.
// Shapes round-trip through JSON so the map spec layer applies its own
// validation.
func buildRequest(args map[string]any) (generator.Request, error) {
	mode := stringArg(args, "mode")
	if mode == "" {
		mode = "casual"
	}
	parsedMode, err := card.ParseMode(mode)
	if err != nil {
		return generator.Request{}, err
	}

	req := generator.Request{
		Mode: parsedMode,
		Table: generator.TableRequest{
			Preset:   stringArg(args, "preset"),
			WidthCm:  floatArg(args, "width_cm"),
			HeightCm: floatArg(args, "height_cm"),
		},
	}
	if seed, ok := intArg(args, "seed"); ok {
		value := int64(seed)
		req.Seed = &value
	}

	if raw, ok := args["shapes"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return generator.Request{}, fmt.Errorf("encode shapes: %w", err)
		}
		var shapes []mapspec.RawShape
		if err := json.Unmarshal(data, &shapes); err != nil {
			return generator.Request{}, fmt.Errorf("decode shapes: %w", err)
		}
		req.Shapes = shapes
	}
	return req, nil
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func intArg(args map[string]any, key string) (int, bool) {
	value, ok := args[key].(int)
	return value, ok
}

// floatArg accepts both Lua integers and fractional numbers.
func floatArg(args map[string]any, key string) float64 {
	switch value := args[key].(type) {
	case int:
		return float64(value)
	case float64:
		return value
	default:
		return 0
	}
}
