package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/discovery"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

type seedCreator struct {
	platform string
	login    string
	display  string
}

// curatedCreators is the starter roster the seed command tracks. Twitch
// logins resolve to broadcaster IDs at seed time; Kick channels key by slug.
var curatedCreators = []seedCreator{
	{"twitch", "braeden", "Braeden"},
	{"twitch", "agent00", "Agent00"},
	{"twitch", "2xrakai", "2xRaKai"},
	{"twitch", "xqc", "xQC"},
	{"twitch", "jasontheween", "JasonTheWeen"},
	{"twitch", "botezlive", "BotezLive"},
	{"twitch", "lacy", "Lacy"},
	{"twitch", "jinnytty", "Jinnytty"},
	{"twitch", "stableronaldo", "StableRonaldo"},
	{"twitch", "adapt", "Adapt"},
	{"kick", "xqc", "xQc"},
	{"kick", "adinross", "Adin Ross"},
	{"kick", "jackdoherty", "Jack Doherty"},
	{"kick", "n3on", "N3on"},
	{"kick", "clavicular", "Clavicular"},
	{"kick", "rampagejackson", "RampageJackson"},
	{"kick", "vitaly", "Vitaly"},
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the profile and tracked creators",
		Long: "Seed installs the profile with its default ruleset and links the " +
			"starter roster of tracked creators. Twitch logins are resolved to " +
			"broadcaster IDs through the Helix API; unresolvable logins are " +
			"skipped. Running seed again is safe and updates names in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, ctx)
		},
	}
}

func runSeed(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rulesJSON, err := profiles.Default().Encode()
	if err != nil {
		return err
	}

	return ctx.withStore(func(store *clips.Store) error {
		cmdCtx := cmd.Context()
		slug := ctx.profileSlug()
		profile, err := store.UpsertProfile(cmdCtx, slug, profileDisplayName(slug), rulesJSON)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded profile %s (%s)\n", profile.Name, profile.Slug)

		twitchIDs := map[string]string{}
		twitchLogins := make([]string, 0, len(curatedCreators))
		for _, seed := range curatedCreators {
			if seed.platform == "twitch" {
				twitchLogins = append(twitchLogins, seed.login)
			}
		}
		haveTwitchCreds := strings.TrimSpace(cfg.Twitch.ClientID) != "" && strings.TrimSpace(cfg.Twitch.ClientSecret) != ""
		if haveTwitchCreds {
			client := discovery.NewTwitchClient(cfg, logging.NewNop())
			twitchIDs, err = client.ResolveUserIDs(cmdCtx, twitchLogins)
			if err != nil {
				return fmt.Errorf("resolve twitch logins: %w", err)
			}
		} else if len(twitchLogins) > 0 {
			fmt.Fprintln(out, renderStatusLine("Twitch", statusWarn,
				fmt.Sprintf("credentials missing; skipping %d Twitch creators", len(twitchLogins)), colorize))
		}

		for _, seed := range curatedCreators {
			creator := &clips.Creator{
				Platform:    seed.platform,
				DisplayName: seed.display,
			}
			switch seed.platform {
			case "twitch":
				if !haveTwitchCreds {
					continue
				}
				id, ok := twitchIDs[strings.ToLower(seed.login)]
				if !ok {
					fmt.Fprintln(out, renderStatusLine(seed.display, statusWarn,
						fmt.Sprintf("twitch login %q not found, skipped", seed.login), colorize))
					continue
				}
				creator.PlatformUserID = id
				creator.ChannelURL = "https://twitch.tv/" + seed.login
			case "kick":
				creator.PlatformUserID = seed.login
				creator.ChannelURL = "https://kick.com/" + seed.login
			default:
				continue
			}

			stored, err := store.UpsertCreator(cmdCtx, creator)
			if err != nil {
				return err
			}
			if err := store.LinkCreator(cmdCtx, profile.ID, stored.ID, true); err != nil {
				return err
			}
		}

		tracked, err := store.EnabledCreators(cmdCtx, profile.ID)
		if err != nil {
			return err
		}
		if len(tracked) == 0 {
			fmt.Fprintln(out, "No creators tracked")
			return nil
		}

		for _, line := range renderSectionHeader("Tracked Creators", colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(tracked))
		for _, creator := range tracked {
			rows = append(rows, []string{
				fmt.Sprintf("%d", creator.ID),
				creator.Platform,
				creator.PlatformUserID,
				creator.DisplayName,
				creator.ChannelURL,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Platform", "User ID", "Name", "URL"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	})
}

// profileDisplayName derives a human-readable name for a profile slug. The
// default slug keeps its canonical name.
func profileDisplayName(slug string) string {
	if slug == profiles.DefaultSlug {
		return profiles.DefaultName
	}
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return labelCaser.String(cleaned)
}
