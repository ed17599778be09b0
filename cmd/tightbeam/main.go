// Command tightbeam is a demo harness for the broadcast/receive halves of
// the fountain-coded QR link: it prepares a broadcast's frame playback list
// from a file or turns a captured frame log back into the original
// payload. Grounded on the teacher's cmd/client and cmd/server mains,
// rebuilt on github.com/urfave/cli/v2 the way the rest of the pack's CLI
// tools are structured, rather than the teacher's stdlib flag package.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tightbeam/tightbeam/session"
	"github.com/tightbeam/tightbeam/syncctl"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	app := &cli.App{
		Name:  "tightbeam",
		Usage: "prepare and replay fountain-coded QR broadcasts",
		Commands: []*cli.Command{
			broadcastCommand(),
			receiveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("tightbeam")
	}
}

func broadcastCommand() *cli.Command {
	return &cli.Command{
		Name:  "broadcast",
		Usage: "partition a file, fountain-encode it, and print the wire frame playback list",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "file to broadcast"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write frames here, one per line (default: stdout)"},
			&cli.IntFlag{Name: "block-size", Value: session.DefaultBlockSize, Usage: "source block size in bytes"},
			&cli.IntFlag{Name: "redundant", Usage: "number of redundant symbols to emit (default: 0.75 * k)"},
			&cli.Uint64Flag{Name: "seed", Usage: "fountain PRNG seed (default: random)"},
			&cli.StringFlag{Name: "integrity", Value: "sha256", Usage: "integrity algorithm: sha256 or crc32"},
		},
		Action: func(c *cli.Context) error {
			payload, err := os.ReadFile(c.String("input"))
			if err != nil {
				return fmt.Errorf("tightbeam: read input: %w", err)
			}

			opts := session.Options{
				BlockSize:          c.Int("block-size"),
				RedundantCount:     c.Int("redundant"),
				Seed:               c.Uint64("seed"),
				IntegrityAlgorithm: c.String("integrity"),
			}

			pkg, err := session.PrepareBroadcast(payload, opts)
			if err != nil {
				return fmt.Errorf("tightbeam: prepare broadcast: %w", err)
			}

			out := os.Stdout
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("tightbeam: create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			w := bufio.NewWriter(out)
			for _, frame := range pkg.Frames {
				fmt.Fprintln(w, frame)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("tightbeam: write frames: %w", err)
			}

			log.Info().
				Str("session_id", pkg.ID).
				Int("k", pkg.Metadata.K).
				Int("systematic", pkg.SystematicCount).
				Int("redundant", pkg.RedundantCount).
				Int("frames", len(pkg.Frames)).
				Msg("broadcast prepared")
			return nil
		},
	}
}

func receiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "receive",
		Usage: "replay a captured frame log through the receiver and print the recovered payload",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "frame log, one wire frame per line"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write recovered payload here (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("input"))
			if err != nil {
				return fmt.Errorf("tightbeam: open input: %w", err)
			}
			defer f.Close()

			rx := session.NewReceiver("cli-session", syncctl.Config{})

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

			var status session.Status
			lines := 0
			for scanner.Scan() {
				lines++
				line := scanner.Text()
				if line == "" {
					continue
				}
				status, err = rx.IngestFrame(line)
				if err != nil {
					log.Warn().Err(err).Int("line", lines).Msg("frame rejected")
				}
				if status.DecodeComplete {
					break
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("tightbeam: read frame log: %w", err)
			}

			log.Info().
				Int("lines", lines).
				Str("sync_state", status.SyncState.String()).
				Float64("coverage", status.Coverage).
				Bool("complete", status.DecodeComplete).
				Bool("corrupted", status.Corrupted).
				Msg("receive finished")

			if !status.DecodeComplete {
				return fmt.Errorf("tightbeam: decode incomplete after %d frames (coverage %.2f)", lines, status.Coverage)
			}
			if status.Corrupted {
				return fmt.Errorf("tightbeam: recovered payload failed its integrity check")
			}

			out := os.Stdout
			if path := c.String("output"); path != "" {
				w, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("tightbeam: create output: %w", err)
				}
				defer w.Close()
				out = w
			}
			_, err = out.Write(status.Recovered)
			return err
		},
	}
}
