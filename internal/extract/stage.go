package extract

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies a pipeline step.
type Stage string

const (
	StageSampling    Stage = "sampling frames"
	StageDetecting   Stage = "detecting regions"
	StageRecognizing Stage = "recognizing text"
	StageFiltering   Stage = "filtering language"
	StageAssembling  Stage = "assembling subtitles"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageSampling, StageDetecting, StageRecognizing, StageFiltering, StageAssembling}

var stageStart = map[Stage]float64{
	StageSampling:    0,
	StageDetecting:   20,
	StageRecognizing: 40,
	StageFiltering:   70,
	StageAssembling:  90,
}

// StartPercent is the overall progress reported when the stage begins.
func (s Stage) StartPercent() float64 {
	return stageStart[s]
}

// Title renders the stage as a headline, e.g. "Recognizing Text".
func (s Stage) Title() string {
	return cases.Title(language.English).String(string(s))
}

// Label renders the stage in sentence case, e.g. "Recognizing text".
func (s Stage) Label() string {
	first, rest, found := strings.Cut(string(s), " ")
	label := cases.Title(language.English).String(first)
	if found {
		label += " " + rest
	}
	return label
}

// Progress is passed to Hooks.Checkpoint.
type Progress struct {
	Stage   Stage
	Percent float64
	Detail  string
	// StageStart is true for the first checkpoint of a stage.
	StageStart bool
}
