package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/dto"
	"wiki-quiz/internal/logger"
	"wiki-quiz/internal/service"
	"wiki-quiz/internal/validation"

	"github.com/spf13/cobra"
)

func newGenerateCommand(opts *options) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Generate (or fetch the stored) quiz for an article URL",
		Example: `  quizctl generate https://en.wikipedia.org/wiki/Alan_Turing
  quizctl generate https://en.wikipedia.org/wiki/Alan_Turing --refresh -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, errs := validation.NewValidator(nil).ValidateArticleURL(args[0])
			if len(errs) > 0 {
				return errs
			}
			return opts.withService(cmd.Context(), func(svc service.QuizService) error {
				result, err := svc.Generate(cmd.Context(), service.GenerateRequest{URL: url, Refresh: refresh})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, dto.NewQuizResponse(result.Artifact, result.Cached, result.Degraded))
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-run the pipeline and overwrite the stored quiz")
	return cmd
}

func newHistoryCommand(opts *options) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored quizzes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if errs := validation.NewValidator(nil).ValidatePage(limit, offset); len(errs) > 0 {
				return errs
			}
			return opts.withService(cmd.Context(), func(svc service.QuizService) error {
				summaries, err := svc.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, dto.NewHistoryResponse(summaries, limit, offset))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", validation.DefaultLimit, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Items to skip")
	return cmd
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return opts.withService(cmd.Context(), func(svc service.QuizService) error {
				artifact, err := svc.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, dto.NewQuizResponse(artifact, true, artifact.Degraded()))
			})
		},
	}
}

func newBatchCommand(opts *options) *cobra.Command {
	var (
		file        string
		refresh     bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch [url...]",
		Short: "Generate quizzes for many URLs",
		Long: `Batch runs the pipeline for every URL given as an argument or listed in
--file (one per line, "-" for stdin; blank lines and # comments are skipped).
A failing URL is reported and the batch continues.`,
		Example: `  quizctl batch --file urls.txt --concurrency 8
  cat urls.txt | quizctl batch --file - -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string{}, args...)
			if file != "" {
				fromFile, err := readURLList(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given")
			}

			v := validation.NewValidator(nil)
			var invalid domain.ValidationErrors
			for i, raw := range urls {
				normalized, errs := v.ValidateArticleURL(raw)
				invalid = append(invalid, errs...)
				urls[i] = normalized
			}
			if len(invalid) > 0 {
				return invalid
			}

			return opts.withService(cmd.Context(), func(svc service.QuizService) error {
				report := service.NewBatchService(svc, concurrency, logger.Get()).GenerateAll(cmd.Context(), urls, refresh)
				if err := render(cmd.OutOrStdout(), opts.output, *report); err != nil {
					return err
				}
				if report.Failed > 0 {
					return fmt.Errorf("%d of %d URLs failed", report.Failed, len(urls))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one URL per line (\"-\" for stdin)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-run the pipeline for URLs that already have a quiz")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum pipeline runs in flight")
	return cmd
}

func readURLList(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening url list: %w", err)
		}
		defer f.Close()
		r = f
	}

	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}
	return urls, nil
}
