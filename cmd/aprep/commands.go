package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	internal "github.com/ZanzyTHEbar/abstract-prep/aprep"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/config"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/embedding"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/embedding/tokenizer"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/labels"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/prep"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/store"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/textnorm"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/vocab"
)

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           internal.DefaultAppName,
		Short:         "prepare annotated medical abstracts for sentence classification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to ./config.yaml or "+internal.DefaultConfigPath+")")

	load := func() (*config.Config, error) { return config.LoadConfig(configPath) }

	root.AddCommand(
		prepareCmd(load),
		vocabCmd(load),
		labelsCmd(load),
		runsCmd(load),
		wordpieceCmd(load),
		embedCmd(),
	)
	return root
}

type configLoader func() (*config.Config, error)

func prepareCmd(load configLoader) *cobra.Command {
	var train, val, test, output, dsn string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "parse, normalize and encode the corpus, writing labels.json and vocab.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			override(flags, "train", &cfg.Data.TrainFile, train)
			override(flags, "val", &cfg.Data.ValFile, val)
			override(flags, "test", &cfg.Data.TestFile, test)
			override(flags, "output", &cfg.Data.OutputDir, output)
			override(flags, "store", &cfg.Store.DSN, dsn)

			p, err := prep.New(cfg, internal.NewLogger(cfg.Logging.Level))
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s\n", res.RunID)
			for _, name := range prep.SplitNames {
				fmt.Fprintf(w, "%-5s %d\n", name, res.Splits[name].Dataset.Len())
			}
			fmt.Fprintf(w, "labels %s\nvocab  %s\n", res.LabelsPath, res.VocabPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&train, "train", "", "training file; split into train/val/test unless --val and --test are given")
	cmd.Flags().StringVar(&val, "val", "", "validation file")
	cmd.Flags().StringVar(&test, "test", "", "test file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact directory")
	cmd.Flags().StringVar(&dsn, "store", "", "cache the run into this database")
	return cmd
}

// override replaces a config value only when the flag was set explicitly.
func override(flags *pflag.FlagSet, name string, dst *string, val string) {
	if flags.Changed(name) {
		*dst = val
	}
}

func artifactPath(cfg *config.Config, flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(cfg.Data.OutputDir, name)
}

func vocabCmd(load configLoader) *cobra.Command {
	var file, prefix string

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "print vocabulary entries, optionally only those with a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tok, err := vocab.Load(artifactPath(cfg, file, internal.DefaultVocabFile))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range tok.TokensWithPrefix(prefix) {
				idx, _ := tok.Lookup(t)
				fmt.Fprintf(w, "%d\t%s\n", idx, t)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "vocab.json to read (defaults to the output directory)")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "only print tokens starting with this prefix")
	return cmd
}

func labelsCmd(load configLoader) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "print the saved label mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			enc, err := labels.Load(artifactPath(cfg, file, internal.DefaultLabelsFile))
			if err != nil {
				return err
			}
			for i, c := range enc.Classes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, c)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "labels.json to read (defaults to the output directory)")
	return cmd
}

func runsCmd(load configLoader) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "list runs cached in the dataset store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			switch {
			case dsn != "":
			case cfg.Store.DSN != "":
				dsn = cfg.Store.DSN
			default:
				dsn = internal.DefaultStorePath
			}
			if _, err := os.Stat(dsn); err != nil {
				return fmt.Errorf("no dataset store at %s: %w", dsn, err)
			}

			st, err := store.Open(dsn)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "store", "", "database to read (defaults to store.dsn)")
	return cmd
}

func wordpieceCmd(load configLoader) *cobra.Command {
	var file string
	var maxSeq int

	cmd := &cobra.Command{
		Use:   "wordpiece TEXT...",
		Short: "tokenize text with a WordPiece model built from the saved vocabulary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			v, err := vocab.Load(artifactPath(cfg, file, internal.DefaultVocabFile))
			if err != nil {
				return err
			}
			dir, err := os.MkdirTemp("", internal.DefaultAppName+"-wordpiece-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			wp, err := tokenizer.New(v, tokenizer.Config{Dir: dir, MaxSeqLen: maxSeq})
			if err != nil {
				return err
			}
			ids, masks, err := wp.Tokenize(args)
			if err != nil {
				return err
			}
			for i := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", joinInts(ids[i]), joinInts(masks[i]))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "vocab.json to read (defaults to the output directory)")
	cmd.Flags().IntVar(&maxSeq, "max-seq", 32, "fixed output length")
	return cmd
}

func embedCmd() *cobra.Command {
	var provider string
	var dims int

	cmd := &cobra.Command{
		Use:   "embed TEXT...",
		Short: "normalize text and print its hashed bag-of-words vector",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := embedding.NewProvider(provider, dims)
			if err != nil {
				return err
			}
			texts, err := textnorm.New(textnorm.EnglishStopwords).NormalizeAll(cmd.Context(), args, 0)
			if err != nil {
				return err
			}
			m, err := embedding.Matrix(cmd.Context(), p, texts, dims)
			if err != nil {
				return err
			}
			rows, _ := m.Dims()
			for i := 0; i < rows; i++ {
				parts := make([]string, 0, dims)
				for _, x := range m.RawRowView(i) {
					parts = append(parts, strconv.FormatFloat(x, 'f', 4, 64))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", texts[i], strings.Join(parts, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "hash", "embedding provider")
	cmd.Flags().IntVar(&dims, "dims", 32, "vector width")
	return cmd
}

func joinInts(xs []int64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " ")
}
