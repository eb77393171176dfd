// Command fragdump reads fragmented MP4 files and prints their tracks,
// movie fragments and, optionally, the resolved sample timing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tetsuo/fmp4"
	"github.com/tetsuo/fmp4/internal/config"
	"github.com/tetsuo/fmp4/track"
)

// errSampleLimit rejects fragments declaring more samples than configured.
var errSampleLimit = errors.New("fragment sample count exceeds limit")

// fileReport is everything decoded from one input file.
type fileReport struct {
	File      string                   `json:"file"`
	Tracks    []*track.Track           `json:"tracks,omitempty"`
	Fragments []*fmp4.Fragment         `json:"fragments,omitempty"`
	Samples   []track.Sample           `json:"samples,omitempty"`
	Stats     []track.TrackSampleStats `json:"stats,omitempty"`
	Error     string                   `json:"error,omitempty"`

	err       error
	errBox    string
	errOffset int64
}

func (r *fileReport) fail(box fmp4.BoxType, offset int64, err error) {
	r.err = err
	r.Error = err.Error()
	r.errOffset = offset
	if box != (fmp4.BoxType{}) {
		r.errBox = box.String()
	}
}

func main() {
	formatFlag := flag.String("format", config.FormatText, "output format: text (default), json")
	configFlag := flag.String("config", "", "YAML configuration file")
	workersFlag := flag.Int("workers", 0, "number of files processed concurrently")
	samplesFlag := flag.Bool("samples", false, "resolve and print per-sample timing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-format text|json] [-config file.yaml] [-workers N] [-samples] <file.mp4>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = *formatFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "samples":
			cfg.Samples = *samplesFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid options: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}

	reports, err := run(flag.Args(), cfg, logger)
	if err != nil {
		logger.WithError(err).Error("run failed")
		os.Exit(1)
	}

	failed := false
	for _, r := range reports {
		if r.err != nil {
			failed = true
		}
	}
	if err := printReports(os.Stdout, reports, cfg); err != nil {
		logger.WithError(err).Error("write output")
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

// run processes files on a worker pool and returns reports in argument order.
func run(files []string, cfg *config.Config, logger *logrus.Logger) ([]*fileReport, error) {
	reports := make([]*fileReport, len(files))

	var wg sync.WaitGroup
	p, err := ants.NewPoolWithFunc(cfg.Workers, func(arg interface{}) {
		defer wg.Done()
		i := arg.(int)
		r := processFile(files[i], cfg)
		if r.err != nil {
			logger.WithFields(logrus.Fields{
				"file":   r.File,
				"box":    r.errBox,
				"offset": r.errOffset,
			}).WithError(r.err).Error("decode failed")
		} else {
			logger.WithFields(logrus.Fields{
				"file":      r.File,
				"tracks":    len(r.Tracks),
				"fragments": len(r.Fragments),
			}).Debug("decoded")
		}
		reports[i] = r
	})
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer p.Release()

	for i := range files {
		wg.Add(1)
		if err := p.Invoke(i); err != nil {
			wg.Done()
			reports[i] = &fileReport{File: files[i]}
			reports[i].fail(fmp4.BoxType{}, 0, errors.Wrap(err, "submit"))
		}
	}
	wg.Wait()
	return reports, nil
}

// processFile scans the top-level boxes of one file. Only moov and moof are
// loaded into memory.
func processFile(path string, cfg *config.Config) *fileReport {
	r := &fileReport{File: path}

	f, err := os.Open(path)
	if err != nil {
		r.fail(fmp4.BoxType{}, 0, err)
		return r
	}
	defer f.Close()

	var buf []byte
	sc := fmp4.NewScanner(f)
	for sc.Next() {
		e := sc.Entry()
		if e.Type != fmp4.TypeMoov && e.Type != fmp4.TypeMoof {
			continue
		}

		if int64(cap(buf)) < e.Size {
			buf = make([]byte, e.Size)
		}
		buf = buf[:e.Size]
		if err := sc.ReadBox(buf); err != nil {
			r.fail(e.Type, e.Offset, err)
			return r
		}

		switch e.Type {
		case fmp4.TypeMoov:
			tracks, err := track.ParseInit(buf)
			if err != nil {
				r.fail(e.Type, e.Offset, err)
				return r
			}
			r.Tracks = tracks

		case fmp4.TypeMoof:
			frag, err := fmp4.ParseFragment(buf, e.Offset)
			if err != nil {
				r.fail(e.Type, e.Offset, err)
				return r
			}
			if n := fragmentSampleCount(frag); n > cfg.MaxSamples {
				r.fail(e.Type, e.Offset, errors.Wrapf(errSampleLimit, "%d samples, limit %d", n, cfg.MaxSamples))
				return r
			}
			r.Fragments = append(r.Fragments, frag)
			if cfg.Samples {
				r.Samples, err = track.FragmentSamples(r.Samples, frag, r.Tracks)
				if err != nil {
					r.fail(e.Type, e.Offset, err)
					return r
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		r.fail(fmp4.BoxType{}, 0, err)
		return r
	}

	if cfg.Samples {
		r.Stats = track.CollectTrackSampleStats(nil, r.Tracks, r.Samples)
	}
	return r
}

func fragmentSampleCount(frag *fmp4.Fragment) int {
	n := 0
	for i := range frag.Tracks {
		n += frag.Tracks[i].SampleCount()
	}
	return n
}

func printReports(w io.Writer, reports []*fileReport, cfg *config.Config) error {
	if cfg.Format == config.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, r := range reports {
		printReportText(w, r)
	}
	return nil
}

func printReportText(w io.Writer, r *fileReport) {
	fmt.Fprintf(w, "%s\n", r.File)

	for _, t := range r.Tracks {
		fmt.Fprintf(w, "  [track] id=%d kind=%s timescale=%d", t.ID, t.Kind, t.TimeScale)
		if t.Language != "" {
			fmt.Fprintf(w, " lang=%s", t.Language)
		}
		if t.Codec != "" {
			fmt.Fprintf(w, " codec=%s", t.Codec)
		}
		if t.Defaults.SampleDuration != 0 {
			fmt.Fprintf(w, " defaultDuration=%d", t.Defaults.SampleDuration)
		}
		if t.Defaults.SampleSize != 0 {
			fmt.Fprintf(w, " defaultSize=%d", t.Defaults.SampleSize)
		}
		fmt.Fprintln(w)
	}

	for _, frag := range r.Fragments {
		fmt.Fprintf(w, "  [moof] offset=%d size=%d seq=%d\n", frag.Offset, frag.Size, frag.SequenceNumber)
		for i := range frag.Tracks {
			printTrackFragment(w, &frag.Tracks[i])
		}
	}

	for _, s := range r.Samples {
		fmt.Fprintf(w, "  [sample] track=%d dts=%d pts=%d dur=%d size=%d offset=%d\n",
			s.TrackID, s.DTS, s.PTS(), s.Duration, s.Size, s.Offset)
	}
	for _, st := range r.Stats {
		fmt.Fprintf(w, "  [stats] track=%d samples=%d duration=%d earliestPTS=%d timescale=%d\n",
			st.TrackID, st.SampleCount, st.Duration, st.EarliestPTS, st.TimeScale)
	}

	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
}

func printTrackFragment(w io.Writer, tf *fmp4.TrackFragment) {
	h := tf.Header
	fmt.Fprintf(w, "    [traf] trackId=%d flags=0x%06x", h.TrackID, tf.Flags)
	if v, ok := h.BaseDataOffset.Get(); ok {
		fmt.Fprintf(w, " baseDataOffset=%d", v)
	}
	if v, ok := h.DefaultSampleDuration.Get(); ok {
		fmt.Fprintf(w, " defaultDuration=%d", v)
	}
	if v, ok := h.DefaultSampleSize.Get(); ok {
		fmt.Fprintf(w, " defaultSize=%d", v)
	}
	if d, ok := tf.DecodeTime.Get(); ok {
		fmt.Fprintf(w, " baseMediaDecodeTime=%d", d.BaseMediaDecodeTime)
	}
	fmt.Fprintln(w)

	for i := range tf.Runs {
		run := &tf.Runs[i]
		fmt.Fprintf(w, "      [trun] entries=%d", run.Len())
		if v, ok := run.DataOffset.Get(); ok {
			fmt.Fprintf(w, " dataOffset=%d", v)
		}
		fmt.Fprintln(w)
	}
}
