package pipeline

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage names in execution order.
const (
	StageManifest = "manifest"
	StageMFCC     = "mfcc"
	StageIvectors = "ivectors"
	StageDecode   = "decode"
	StagePhoneCTM = "phone_ctm"
	StageWordCTM  = "word_ctm"
	StageTextGrid = "textgrid"
)

// Stage is one step of the pipeline.
type Stage interface {
	Name() string
	Execute(ctx context.Context, run *Run) error
}

type stageFunc struct {
	name string
	fn   func(context.Context, *Run) error
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Execute(ctx context.Context, run *Run) error { return s.fn(ctx, run) }

// DefaultStages returns the full stage sequence.
func DefaultStages() []Stage {
	return []Stage{
		stageFunc{StageManifest, runManifest},
		stageFunc{StageMFCC, runMFCC},
		stageFunc{StageIvectors, runIvectors},
		stageFunc{StageDecode, runDecode},
		stageFunc{StagePhoneCTM, runPhoneCTM},
		stageFunc{StageWordCTM, runWordCTM},
		stageFunc{StageTextGrid, runTextGrid},
	}
}

// StageNames lists the names of DefaultStages.
func StageNames() []string {
	stages := DefaultStages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name()
	}
	return names
}

var labelAcronyms = map[string]string{
	"mfcc":     "MFCC",
	"ctm":      "CTM",
	"ivectors": "i-vectors",
}

// Label renders a stage name for humans ("phone_ctm" -> "Phone CTM").
func Label(name string) string {
	title := cases.Title(language.English)
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(name), "_", " "))
	for i, word := range words {
		if acronym, ok := labelAcronyms[word]; ok {
			words[i] = acronym
			continue
		}
		words[i] = title.String(word)
	}
	return strings.Join(words, " ")
}
