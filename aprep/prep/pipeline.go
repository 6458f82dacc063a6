package prep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/abstract-prep/aprep"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/config"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/corpus"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/dataset"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/labels"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/store"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/textnorm"
	"github.com/ZanzyTHEbar/abstract-prep/aprep/vocab"
)

const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

var (
	ErrNoInput      = errors.New("no training file configured")
	ErrUnknownSplit = errors.New("unknown split")
)

// SplitNames lists the splits in pipeline order.
var SplitNames = []string{SplitTrain, SplitVal, SplitTest}

// Split is one prepared partition of the corpus.
type Split struct {
	Name    string
	Samples []corpus.Sample // Text holds the normalized sentence
	Dataset *dataset.Dataset
}

// Result holds the fitted artifacts and prepared splits of a run.
type Result struct {
	RunID      uuid.UUID
	Labels     *labels.Encoder
	Vocab      *vocab.Tokenizer
	Splits     map[string]*Split
	LabelsPath string
	VocabPath  string
}

// Pipeline turns raw abstract files into encoded datasets.
type Pipeline struct {
	cfg        *config.Config
	log        zerolog.Logger
	normalizer *textnorm.Normalizer
}

// New builds a pipeline, loading the configured stopword list.
func New(cfg *config.Config, log zerolog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stopwords := textnorm.EnglishStopwords
	switch {
	case cfg.Text.DisableStopwords:
		stopwords = nil
	case cfg.Text.StopwordsFile != "":
		words, err := textnorm.LoadStopwords(cfg.Text.StopwordsFile)
		if err != nil {
			return nil, err
		}
		stopwords = words
	}
	var opts []textnorm.Option
	if cfg.Text.Stem {
		opts = append(opts, textnorm.WithStemming())
	}

	return &Pipeline{
		cfg:        cfg,
		log:        log,
		normalizer: textnorm.New(stopwords, opts...),
	}, nil
}

// Run parses, normalizes, fits and encodes the configured corpus, writes the
// label and vocabulary documents, and caches the run when a store is set.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	raw, err := p.load()
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New(), Splits: make(map[string]*Split, len(SplitNames))}
	for _, name := range SplitNames {
		texts, err := p.normalizer.NormalizeAll(ctx, corpus.Texts(raw[name]), p.cfg.Text.Workers)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s split: %w", name, err)
		}
		res.Splits[name] = &Split{Name: name, Samples: corpus.WithTexts(raw[name], texts)}
	}

	train := res.Splits[SplitTrain].Samples
	res.Labels = labels.NewEncoder().Fit(corpus.Targets(train))
	res.Vocab, err = vocab.New(
		vocab.WithCharLevel(p.cfg.Vocab.CharLevel),
		vocab.WithCapacity(p.cfg.Vocab.Capacity),
		vocab.WithPadToken(p.cfg.Vocab.PadToken),
		vocab.WithOOVToken(p.cfg.Vocab.OOVToken),
	).Fit(corpus.Texts(train))
	if err != nil {
		return nil, fmt.Errorf("failed to fit vocabulary: %w", err)
	}

	for _, name := range SplitNames {
		sp := res.Splits[name]
		y, err := res.Labels.Encode(corpus.Targets(sp.Samples))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s labels: %w", name, err)
		}
		sp.Dataset, err = dataset.New(res.Vocab.Encode(corpus.Texts(sp.Samples)), y)
		if err != nil {
			return nil, err
		}
	}

	if err := p.saveArtifacts(res); err != nil {
		return nil, err
	}
	if p.cfg.Store.DSN != "" {
		if err := p.cache(ctx, res); err != nil {
			return nil, err
		}
	}

	p.log.Info().
		Str("run_id", res.RunID.String()).
		Int("train", res.Splits[SplitTrain].Dataset.Len()).
		Int("val", res.Splits[SplitVal].Dataset.Len()).
		Int("test", res.Splits[SplitTest].Dataset.Len()).
		Strs("classes", res.Labels.Classes()).
		Ints("class_counts", res.Labels.Counts(corpus.Targets(train))).
		Int("vocab_size", res.Vocab.Len()).
		Int("min_token_freq", res.Vocab.MinTokenFreq()).
		Msg("Prepared dataset")
	return res, nil
}

// load returns raw samples per split, splitting the training file when no
// separate validation and test files are configured.
func (p *Pipeline) load() (map[string][]corpus.Sample, error) {
	d := p.cfg.Data
	if d.TrainFile == "" {
		return nil, ErrNoInput
	}
	opts := corpus.ParseOptions{Lowercase: d.Lowercase}

	parse := func(path string) ([]corpus.Sample, error) {
		samples, report, err := corpus.ParseFile(path, opts)
		if err != nil {
			return nil, err
		}
		ev := p.log.Debug()
		if report.Malformed > 0 {
			ev = p.log.Warn()
		}
		ev.Str("file", path).
			Int("abstracts", report.Abstracts).
			Int("samples", report.Samples).
			Int("malformed", report.Malformed).
			Msg("Parsed file")
		return samples, nil
	}

	train, err := parse(d.TrainFile)
	if err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("%s: %w", d.TrainFile, corpus.ErrEmptyCorpus)
	}

	if d.ValFile != "" && d.TestFile != "" {
		val, err := parse(d.ValFile)
		if err != nil {
			return nil, err
		}
		test, err := parse(d.TestFile)
		if err != nil {
			return nil, err
		}
		return map[string][]corpus.Sample{SplitTrain: train, SplitVal: val, SplitTest: test}, nil
	}

	idx, err := corpus.Split(corpus.Targets(train), corpus.SplitOptions{
		TrainSize: p.cfg.Split.TrainSize,
		ValShare:  p.cfg.Split.ValShare,
		Seed:      p.cfg.Split.Seed,
	})
	if err != nil {
		return nil, err
	}
	p.log.Debug().
		Uint64("train", idx.Train.GetCardinality()).
		Uint64("val", idx.Val.GetCardinality()).
		Uint64("test", idx.Test.GetCardinality()).
		Msg("Split training file")
	return map[string][]corpus.Sample{
		SplitTrain: corpus.Select(train, idx.Train),
		SplitVal:   corpus.Select(train, idx.Val),
		SplitTest:  corpus.Select(train, idx.Test),
	}, nil
}

func (p *Pipeline) saveArtifacts(res *Result) error {
	dir := p.cfg.Data.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	res.LabelsPath = filepath.Join(dir, internal.DefaultLabelsFile)
	res.VocabPath = filepath.Join(dir, internal.DefaultVocabFile)
	if err := res.Labels.Save(res.LabelsPath); err != nil {
		return err
	}
	return res.Vocab.Save(res.VocabPath)
}

func (p *Pipeline) cache(ctx context.Context, res *Result) error {
	st, err := store.Open(p.cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.CreateRun(ctx, p.cfg.Data.TrainFile)
	if err != nil {
		return err
	}
	res.RunID = runID
	for _, name := range SplitNames {
		if err := st.SaveSamples(ctx, runID, name, res.Splits[name].Samples); err != nil {
			return err
		}
	}
	for name, v := range map[string]json.Marshaler{
		internal.DefaultLabelsFile: res.Labels,
		internal.DefaultVocabFile:  res.Vocab,
	} {
		doc, err := v.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		if err := st.SaveArtifact(ctx, runID, name, doc); err != nil {
			return err
		}
	}
	p.log.Debug().Str("run_id", runID.String()).Str("dsn", p.cfg.Store.DSN).Msg("Cached run")
	return nil
}

// Loader returns a batch loader over the named split using the configured
// loader options.
func (p *Pipeline) Loader(res *Result, split string) (*dataset.Loader, error) {
	sp, ok := res.Splits[split]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSplit, split)
	}
	lc := p.cfg.Loader
	return dataset.NewLoader(sp.Dataset, dataset.LoaderOptions{
		BatchSize: lc.BatchSize,
		Shuffle:   lc.Shuffle && split == SplitTrain,
		DropLast:  lc.DropLast,
		MinLen:    lc.MinLen,
		Seed:      p.cfg.Split.Seed,
	})
}
