/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/classboard/internal/clock"
	"github.com/friendsincode/classboard/internal/display"
	"github.com/friendsincode/classboard/internal/lesson"
	"github.com/friendsincode/classboard/internal/settings"
)

var (
	lessonAt   string
	lessonDate string
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Work with the lesson schedule",
}

var lessonEvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the stored schedule at an instant",
	Long: `Evaluate the stored lesson schedule and print the result as JSON.

Examples:
  # Now
  classboard lesson evaluate

  # Today at 08:45
  classboard lesson evaluate --at 08:45

  # A specific day
  classboard lesson evaluate --date 2026-03-09 --at 09:30
`,
	Args: cobra.NoArgs,
	RunE: runLessonEvaluate,
}

func init() {
	lessonEvaluateCmd.Flags().StringVar(&lessonAt, "at", "", "Time of day as HH:MM (default: now)")
	lessonEvaluateCmd.Flags().StringVar(&lessonDate, "date", "", "Day as YYYY-MM-DD (default: today)")
	lessonCmd.AddCommand(lessonEvaluateCmd)
	rootCmd.AddCommand(lessonCmd)
}

func runLessonEvaluate(cmd *cobra.Command, args []string) error {
	return withSettings(func(ctx context.Context, svc *settings.Service) error {
		clk := clock.NewReal(cfg.Location())
		at, err := evaluationTime(clk.Now(), lessonDate, lessonAt)
		if err != nil {
			return err
		}

		res, when, err := display.NewComposer(svc, nil, clk, logger).Lesson(ctx, at)
		if err != nil {
			return err
		}

		out := struct {
			Timestamp time.Time           `json:"timestamp"`
			Result    lesson.Result       `json:"result"`
			View      *display.LessonView `json:"view"`
		}{when, res, display.NewLessonView(res)}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	})
}

// evaluationTime combines the optional date and time flags with now. A zero
// result means "now".
func evaluationTime(now time.Time, date, at string) (time.Time, error) {
	if date == "" && at == "" {
		return time.Time{}, nil
	}

	day := now
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q: %w", date, err)
		}
		day = parsed
	}

	// Wall-clock fields, so DST change days keep the requested time of day.
	if at == "" {
		return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
	}
	minutes, err := lesson.ParseTimeOfDay(at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", at, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, now.Location()), nil
}
