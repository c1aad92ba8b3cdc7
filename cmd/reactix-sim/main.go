// Package main plays a run with a JavaScript bot on a simulated clock and
// prints the transcript as JSON. With -draws it instead dumps the raw random
// stream a seed produces. Gameplay tuning comes from REACTIX_GAME_*
// environment variables.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jfapp/reactix/internal/config"
	"github.com/jfapp/reactix/internal/engine"
	"github.com/jfapp/reactix/internal/game"
	"github.com/jfapp/reactix/internal/scripting"
)

func main() {
	var (
		scriptPath string
		mode       string
		seed       string
		boosts     string
		opts       scripting.SimOptions
		showLogs   bool
		draws      int
		cursor     uint64
	)
	flag.StringVar(&scriptPath, "script", "", "bot script defining respond(challenge) (required)")
	flag.StringVar(&mode, "mode", string(game.ModeClassic), "run mode (classic, daily)")
	flag.StringVar(&seed, "seed", "", "run seed (default: today's seed for daily, random for classic)")
	flag.StringVar(&boosts, "boosts", "", "comma-separated boosts to activate (extra_revive, double_coins, shield_one_fail)")
	flag.DurationVar(&opts.ReactionDelay, "delay", 250*time.Millisecond, "bot reaction time")
	flag.DurationVar(&opts.TapGap, "tap-gap", 80*time.Millisecond, "gap between taps of a multi-tap move")
	flag.IntVar(&opts.MaxChallenges, "max", 500, "stop after this many challenges")
	flag.BoolVar(&opts.Revive, "revive", false, "spend an available revive when the run is lost")
	flag.BoolVar(&showLogs, "logs", false, "print the bot's log() output and rng usage to stderr")
	flag.IntVar(&draws, "draws", 0, "dump this many floats of the seed's random stream instead of playing")
	flag.Uint64Var(&cursor, "cursor", 0, "byte offset into the stream for -draws")
	flag.Parse()

	if draws <= 0 && scriptPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -script is required")
		flag.Usage()
		os.Exit(2)
	}

	m, err := game.ParseMode(mode)
	if err != nil {
		fail(err)
	}
	for _, name := range strings.Split(boosts, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		b, err := game.ParseBoost(name)
		if err != nil {
			fail(err)
		}
		opts.Boosts = append(opts.Boosts, b)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		fail(err)
	}

	if draws > 0 {
		seed, err = resolveSeed(m, seed, time.Now(), loc, cfg.Game.DailySalt)
		if err != nil {
			fail(err)
		}
		printJSON(dumpDraws(seed, cursor, draws))
		return
	}

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		fail(fmt.Errorf("read script: %w", err))
	}
	bot, err := scripting.NewBot(string(src))
	if err != nil {
		fail(err)
	}

	var stream *engine.ByteGenerator
	eng := game.NewEngine(cfg.Game,
		game.WithLocation(loc),
		game.WithSourceFactory(func(seed string) engine.Source {
			stream = engine.NewSource(seed)
			return stream
		}),
	)
	res, simErr := scripting.Simulate(eng, bot, m, seed, opts)

	if showLogs {
		for _, entry := range bot.Logs() {
			fmt.Fprintf(os.Stderr, "%s %s\n", entry.Time.Format(time.TimeOnly), entry.Message)
		}
		if stream != nil {
			fmt.Fprintf(os.Stderr, "rng: %d bytes drawn\n", stream.Cursor())
		}
	}

	printJSON(res)
	if simErr != nil {
		fail(simErr)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
