package parser

// Layer 1: syntax tree of a .feature file

type Document struct {
	Feature *Feature
}

type Feature struct {
	Header     FeatureHeader
	Background *Background
	Scenarios  []ScenarioDefinition
}

type FeatureHeader struct {
	Tags        []Tag
	Name        string
	Description string
	Line        int // 1-based line number of Feature: line, 0 if absent
}

type Background struct {
	Steps []Step
}

type ScenarioDefinition struct {
	Tags     []Tag
	Scenario Scenario
	Line     int // 1-based line number of Scenario: line
}

type Scenario struct {
	Name        string
	Description string
	Steps       []Step
}

type Tag struct {
	Name string // e.g. "@focus", "@skip"
	Line int
}

type Step struct {
	Keyword string // Given, When, Then, And, But, *
	Text    string // full sentence as written, keyword included
	Line    int
}

type ParseError struct {
	Line    int
	Message string
}
