// Command mathldbt-estimator builds a synthetic bars-like batch and prints
// its encoded size, local encode/decode timings, and a deterministic WAN
// transfer estimate:
//
//	t_transfer = rtt_ms/1000 + (bytes*8)/(mbit_per_s*1e6)
//
// The timings are wall-clock measurements from the current run, not stable
// benchmarks; only the byte sizes and the transfer formula are
// deterministic.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mathilde-trade/mathilde-binary-transport/batch"
	"github.com/mathilde-trade/mathilde-binary-transport/compress"
	"github.com/mathilde-trade/mathilde-binary-transport/envelope"
	"github.com/mathilde-trade/mathilde-binary-transport/schema"
)

func main() {
	var (
		rows            int
		rttMS           float64
		mbit            float64
		maxUncompressed int
		compressionAlgo string
		verbose         bool
	)

	root := &cobra.Command{
		Use:   "mathldbt-estimator",
		Short: "Estimate MATHLDBT envelope size and WAN transfer time for a synthetic batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			algo, err := parseAlgorithm(compressionAlgo)
			if err != nil {
				return err
			}

			return run(logger, rows, rttMS, mbit, maxUncompressed, algo)
		},
	}

	root.Flags().IntVar(&rows, "rows", 2000, "number of synthetic rows to generate")
	root.Flags().Float64Var(&rttMS, "rtt-ms", 30, "network round-trip time in milliseconds")
	root.Flags().Float64Var(&mbit, "mbit", 100, "link bandwidth in megabits per second")
	root.Flags().IntVar(&maxUncompressed, "max-uncompressed", 1<<30, "bound passed to the decompressor")
	root.Flags().StringVar(&compressionAlgo, "compression", "zstd", "compression algorithm: none, gzip, zstd, s2, lz4")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func parseAlgorithm(s string) (compress.Algorithm, error) {
	switch s {
	case "none":
		return compress.None, nil
	case "gzip":
		return compress.Gzip, nil
	case "zstd":
		return compress.Zstd, nil
	case "s2":
		return compress.S2, nil
	case "lz4":
		return compress.LZ4, nil
	default:
		return 0, fmt.Errorf("unknown --compression value %q", s)
	}
}

func run(logger *zap.Logger, rows int, rttMS, mbit float64, maxUncompressed int, algo compress.Algorithm) error {
	b, err := makeBarsLikeBatch(rows)
	if err != nil {
		return fmt.Errorf("build synthetic batch: %w", err)
	}

	logger.Info("generated synthetic batch", zap.Int("rows", rows), zap.Int("columns", b.Schema.Len()))

	ws := envelope.NewEncodeWorkspace(envelope.WithDictUtf8(), envelope.WithDeltaVarintI64())

	t0 := time.Now()
	plain, err := envelope.EncodeOpt(b, nil, ws)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	encSeconds := time.Since(t0).Seconds()

	dws := envelope.NewDecodeWorkspace()
	t1 := time.Now()
	decoded, err := envelope.DecodeOpt(plain, dws)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	decSeconds := time.Since(t1).Seconds()
	if decoded.RowCount != rows {
		return fmt.Errorf("round-trip row count mismatch: got %d, want %d", decoded.RowCount, rows)
	}

	fmt.Printf("rows=%d\n", rows)
	fmt.Printf("net: rtt_ms=%g mbit_per_s=%g\n", rttMS, mbit)
	printLine("plain_mathldbt", len(plain), encSeconds, decSeconds, rttMS, mbit)

	if algo != compress.None {
		t2 := time.Now()
		compressed, err := compress.CompressEncode(b, nil, ws, algo, 0)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		compEncSeconds := time.Since(t2).Seconds()

		t3 := time.Now()
		decodedCompressed, err := compress.DecompressDecode(compressed, dws, algo, maxUncompressed)
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
		compDecSeconds := time.Since(t3).Seconds()
		if decodedCompressed.RowCount != rows {
			return fmt.Errorf("compressed round-trip row count mismatch: got %d, want %d", decodedCompressed.RowCount, rows)
		}

		printLine(algo.String(), len(compressed), compEncSeconds, compDecSeconds, rttMS, mbit)
	}

	return nil
}

func printLine(label string, byteLen int, encSeconds, decSeconds, rttMS, mbit float64) {
	transfer := transferTimeSeconds(byteLen, rttMS, mbit)
	fmt.Printf(
		"%s: bytes=%d enc_s=%.6f dec_s=%.6f t_transfer_s=%.6f t_total_s=%.6f\n",
		label, byteLen, encSeconds, decSeconds, transfer, encSeconds+transfer+decSeconds,
	)
}

func transferTimeSeconds(byteLen int, rttMS, mbitPerSecond float64) float64 {
	rttSeconds := rttMS / 1000
	bits := float64(byteLen) * 8
	bandwidth := mbitPerSecond * 1_000_000

	return rttSeconds + bits/bandwidth
}

// makeBarsLikeBatch builds a deterministic OHLCV-shaped batch: two Utf8
// columns (pair, timeframe), an I64 timestamp column, and four F64 price
// columns plus one F64 volume column, all fully valid.
func makeBarsLikeBatch(rows int) (batch.Batch, error) {
	sch, err := schema.New([]schema.Field{
		{Name: "pair", Type: schema.Utf8, Nullable: false},
		{Name: "tf", Type: schema.Utf8, Nullable: false},
		{Name: "e_ms", Type: schema.I64, Nullable: false},
		{Name: "open", Type: schema.F64, Nullable: false},
		{Name: "high", Type: schema.F64, Nullable: false},
		{Name: "low", Type: schema.F64, Nullable: false},
		{Name: "close", Type: schema.F64, Nullable: false},
		{Name: "volume", Type: schema.F64, Nullable: false},
	})
	if err != nil {
		return batch.Batch{}, err
	}

	pair := repeatedUtf8Column(rows, "BTCUSDT", "ETHUSDT")
	tf := repeatedUtf8Column(rows, "1m", "1m")

	eMS := make([]byte, rows*8)
	open := make([]byte, rows*8)
	high := make([]byte, rows*8)
	low := make([]byte, rows*8)
	closeCol := make([]byte, rows*8)
	volume := make([]byte, rows*8)

	for i := 0; i < rows; i++ {
		putI64(eMS, i, 1_700_000_000_000+int64(i)*60_000)
		base := 10_000.0 + float64(i)*0.25
		putF64(open, i, base+0.10)
		putF64(high, i, base+0.20)
		putF64(low, i, base+0.05)
		putF64(closeCol, i, base+0.15)
		putF64(volume, i, 100.0+float64(i%10))
	}

	allValid := batch.NewValidityAllValid(rows)
	columns := []batch.Column{
		pair,
		tf,
		batch.NewFixedColumn(schema.I64, allValid, eMS),
		batch.NewFixedColumn(schema.F64, allValid, open),
		batch.NewFixedColumn(schema.F64, allValid, high),
		batch.NewFixedColumn(schema.F64, allValid, low),
		batch.NewFixedColumn(schema.F64, allValid, closeCol),
		batch.NewFixedColumn(schema.F64, allValid, volume),
	}

	return batch.New(sch, rows, columns)
}

func repeatedUtf8Column(rows int, even, odd string) batch.Column {
	offsets := make([]uint32, rows+1)
	var data []byte
	for i := 0; i < rows; i++ {
		v := even
		if i%2 != 0 {
			v = odd
		}
		data = append(data, v...)
		offsets[i+1] = uint32(len(data))
	}

	return batch.NewVarColumn(schema.Utf8, batch.NewValidityAllValid(rows), offsets, data)
}

func putI64(dst []byte, row int, v int64) {
	u := uint64(v)
	off := row * 8
	for i := 0; i < 8; i++ {
		dst[off+i] = byte(u >> (8 * i))
	}
}

func putF64(dst []byte, row int, v float64) {
	putI64(dst, row, int64(math.Float64bits(v)))
}
