package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthScope/internal/aave"
	"healthScope/internal/config"
	"healthScope/internal/model"
	"healthScope/internal/risk"
	"healthScope/internal/storage"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode captured getUserAccountData results offline",
		RunE:  runDecode,
	}
	cmd.Flags().String("in", "", "input JSONL of captured calls (network, address, result)")
	cmd.Flags().String("out", "./data/decoded.jsonl", "output decoded metrics JSONL (- for stdout)")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	cmd.Flags().String("warning-threshold", "2", "warning health factor threshold")
	cmd.Flags().String("danger-threshold", "1", "danger health factor threshold")
	return cmd
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.CreateJSONL(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.CreateJSONL(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	stats, err := decodeCalls(inputFile, cfg.Thresholds, outWriter, errWriter)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.total),
		zap.Int("decoded", stats.decoded),
		zap.Int("failed", stats.failed),
	)
	return nil
}

type decodeStats struct {
	total, decoded, failed int
}

type jsonlSink interface {
	Write(value interface{}) error
}

// decodeCalls decodes one CallRecord per line. Bad lines go to errs and never stop the run.
func decodeCalls(r io.Reader, thresholds model.Thresholds, out, errs jsonlSink) (decodeStats, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var stats decodeStats
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.total++

		var record model.CallRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.failed++
			if err := errs.Write(model.DecodeError{Line: lineNo, Error: err.Error()}); err != nil {
				return stats, err
			}
			continue
		}

		decoded, err := decodeRecord(record, thresholds)
		if err != nil {
			stats.failed++
			if err := errs.Write(model.DecodeError{
				Line:        lineNo,
				Network:     record.Network,
				Address:     record.Address,
				BlockNumber: record.BlockNumber,
				Error:       err.Error(),
			}); err != nil {
				return stats, err
			}
			continue
		}

		if err := out.Write(decoded); err != nil {
			return stats, err
		}
		stats.decoded++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}

func decodeRecord(record model.CallRecord, thresholds model.Thresholds) (model.DecodedCall, error) {
	account, err := model.NewTrackedAccount(record.Address, record.Network, "")
	if err != nil {
		return model.DecodedCall{}, err
	}
	metrics, err := aave.DecodeAccountDataHex(record.Result)
	if err != nil {
		return model.DecodedCall{}, err
	}
	metrics = metrics.ApplyNoDebtOverride()

	return model.DecodedCall{
		Network:     account.Network,
		Address:     account.Address,
		BlockNumber: record.BlockNumber,
		Metrics:     metrics,
		NetWorthUSD: metrics.NetWorthUSD().StringFixed(2),
		Tier:        risk.ClassifyMetrics(metrics, thresholds),
	}, nil
}
