package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"metascreen/domain/screen"
	"metascreen/internal/profiling"
	"metascreen/ports"
)

// Builder renders a screening run into markdown and HTML artifacts.
type Builder struct {
	outputDir string
	writeHTML bool
}

func NewBuilder(outputDir string, writeHTML bool) *Builder {
	return &Builder{
		outputDir: outputDir,
		writeHTML: writeHTML,
	}
}

// Input collects everything a report draws on. Profiles and CVResults
// are optional and their sections are omitted when empty.
type Input struct {
	Run       *screen.Run
	Profiles  []profiling.FeatureProfile
	CVResults []ports.CVResult
}

// Write renders the report and returns the path of the markdown file.
func (b *Builder) Write(input Input) (string, error) {
	if input.Run == nil {
		return "", fmt.Errorf("report input requires a run")
	}
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	md := b.Render(input)
	base := fmt.Sprintf("screen_%s", input.Run.RunID)

	mdPath := filepath.Join(b.outputDir, base+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown report: %w", err)
	}

	if b.writeHTML {
		htmlPath := filepath.Join(b.outputDir, base+".html")
		if err := os.WriteFile(htmlPath, RenderHTML(md), 0o644); err != nil {
			return "", fmt.Errorf("failed to write html report: %w", err)
		}
	}
	return mdPath, nil
}

// Render builds the markdown document without touching the filesystem.
func (b *Builder) Render(input Input) string {
	var sb strings.Builder
	run := input.Run

	sb.WriteString(fmt.Sprintf("# Differential Abundance Screen %s\n\n", run.RunID.String()))
	sb.WriteString(fmt.Sprintf("Generated %s\n\n", run.CreatedAt.String()))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Dataset: %s\n", run.Dataset))
	sb.WriteString(fmt.Sprintf("- Groups: %s vs %s\n", run.Options.ClassA, run.Options.ClassB))
	sb.WriteString(fmt.Sprintf("- Test: %s, alpha %.4g, Bonferroni multiplier %d\n",
		run.Options.Test, run.Options.Alpha, run.TotalFeatures))
	sb.WriteString(fmt.Sprintf("- Samples: %d\n", run.SampleCount))
	sb.WriteString(fmt.Sprintf("- Features screened: %d (%d computed, %d skipped)\n",
		run.TotalFeatures, run.ComputedCount, run.SkippedCount))
	sb.WriteString(fmt.Sprintf("- Significant after correction: %d\n\n", run.SignificantCount))

	writeSignificantSection(&sb, run.Results)
	writeFullResultsSection(&sb, run.Results)
	writeProfileSection(&sb, input.Profiles)
	writeClassifierSection(&sb, input.CVResults)

	return sb.String()
}

func writeSignificantSection(sb *strings.Builder, results []screen.FeatureResult) {
	significant := screen.Significant(results)
	sb.WriteString("## Significant Features\n\n")
	if len(significant) == 0 {
		sb.WriteString("No features passed the corrected threshold.\n\n")
		return
	}

	// Strongest evidence first
	sorted := make([]screen.FeatureResult, len(significant))
	copy(sorted, significant)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CorrectedP < sorted[j].CorrectedP
	})

	sb.WriteString("| Feature | Mean Difference | Raw p | Corrected p | n(A)/n(B) |\n")
	sb.WriteString("|---------|-----------------|-------|-------------|----------|\n")
	for _, r := range sorted {
		sb.WriteString(fmt.Sprintf("| %s | %.4g | %s | %s | %d/%d |\n",
			r.Feature, r.MeanDifference, formatP(r.RawP), formatP(r.CorrectedP),
			r.GroupSizeA, r.GroupSizeB))
	}
	sb.WriteString("\n")
}

func writeFullResultsSection(sb *strings.Builder, results []screen.FeatureResult) {
	if len(results) == 0 {
		return
	}
	sb.WriteString("## All Features\n\n")
	sb.WriteString("| Feature | Status | Raw p | Corrected p | Significant |\n")
	sb.WriteString("|---------|--------|-------|-------------|-------------|\n")
	for _, r := range results {
		if r.Status == screen.StatusNotComputable {
			note := ""
			if r.Error != "" {
				note = " (" + r.Error + ")"
			}
			sb.WriteString(fmt.Sprintf("| %s | not computable%s | - | - | - |\n", r.Feature, note))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | computed | %s | %s | %s |\n",
			r.Feature, formatP(r.RawP), formatP(r.CorrectedP), yesNo(r.Significant)))
	}
	sb.WriteString("\n")
}

func writeProfileSection(sb *strings.Builder, profiles []profiling.FeatureProfile) {
	if len(profiles) == 0 {
		return
	}
	sb.WriteString("## Distribution Profiles\n\n")
	sb.WriteString("| Feature | n | Missing | Mean | StdDev | Median | Skew | Outliers |\n")
	sb.WriteString("|---------|---|---------|------|--------|--------|------|----------|\n")
	for _, p := range profiles {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4g | %.4g | %.4g | %.3g | %d |\n",
			p.Feature, p.SampleSize, p.MissingCount, p.Mean, p.StdDev, p.Median,
			p.Skewness, p.OutlierCount))
	}
	sb.WriteString("\n")
}

func writeClassifierSection(sb *strings.Builder, cvResults []ports.CVResult) {
	if len(cvResults) == 0 {
		return
	}
	sb.WriteString("## Classifier Cross-Validation\n\n")
	sb.WriteString("| Classifier | Folds | Accuracy | StdDev |\n")
	sb.WriteString("|-----------|-------|----------|--------|\n")
	for _, cv := range cvResults {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% | %.2f%% |\n",
			cv.Classifier, cv.Folds, cv.Accuracy*100, cv.StdDev*100))
	}
	sb.WriteString("\n")
}

// RenderHTML converts a markdown report into a standalone HTML page.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func formatP(p float64) string {
	if math.IsNaN(p) {
		return "-"
	}
	if p > 0 && p < 0.0001 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
