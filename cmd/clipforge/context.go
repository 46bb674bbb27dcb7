package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

type commandContext struct {
	configFlag  *string
	profileFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, profileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		profileFlag: profileFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// profileSlug returns the slug commands operate on, falling back to the
// profile the seed command installs.
func (c *commandContext) profileSlug() string {
	if c.profileFlag != nil {
		if slug := strings.TrimSpace(*c.profileFlag); slug != "" {
			return slug
		}
	}
	return profiles.DefaultSlug
}

func (c *commandContext) withStore(fn func(*clips.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := clips.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// resolveProfile loads the selected profile row and its parsed ruleset.
func (c *commandContext) resolveProfile(ctx context.Context, store *clips.Store) (*clips.Profile, profiles.Rules, error) {
	slug := c.profileSlug()
	profile, err := store.GetProfileBySlug(ctx, slug)
	if err != nil {
		return nil, profiles.Rules{}, err
	}
	if profile == nil {
		return nil, profiles.Rules{}, fmt.Errorf("profile %q not found; run `clipforge seed` first", slug)
	}
	rules, err := profiles.Parse(profile.RulesJSON)
	if err != nil {
		return nil, profiles.Rules{}, err
	}
	return profile, rules, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
