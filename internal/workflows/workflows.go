// Package workflows holds named analysis prompt templates that walk a
// caller through multi-step BI tasks using the copilot tools.
package workflows

import (
	"fmt"
	"sort"
	"strings"
)

type Argument struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

type Workflow struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Arguments   []Argument `json:"arguments,omitempty" yaml:"arguments"`
	Template    string     `json:"-" yaml:"template"`
}

// Rendered is a workflow with its argument placeholders filled in.
type Rendered struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

type UnknownWorkflowError struct {
	Name      string
	Available []string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("unknown workflow %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

type MissingArgumentError struct {
	Workflow string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("workflow %q requires argument %q", e.Workflow, e.Argument)
}

// Registry resolves workflows by name. Builtins are always present; a
// pack file may add more or override them.
type Registry struct {
	workflows map[string]Workflow
	order     []string
}

func NewRegistry() *Registry {
	registry := &Registry{workflows: map[string]Workflow{}}
	for _, workflow := range builtins {
		registry.add(workflow)
	}
	return registry
}

func (r *Registry) add(workflow Workflow) {
	if _, exists := r.workflows[workflow.Name]; !exists {
		r.order = append(r.order, workflow.Name)
	}
	r.workflows[workflow.Name] = workflow
}

// List returns every workflow in registration order, builtins first.
func (r *Registry) List() []Workflow {
	listed := make([]Workflow, 0, len(r.order))
	for _, name := range r.order {
		listed = append(listed, r.workflows[name])
	}
	return listed
}

// Render fills the named workflow's placeholders from args. Arguments
// declared required must be present and non-empty.
func (r *Registry) Render(name string, args map[string]string) (Rendered, error) {
	workflow, ok := r.workflows[name]
	if !ok {
		available := append([]string(nil), r.order...)
		sort.Strings(available)
		return Rendered{}, &UnknownWorkflowError{Name: name, Available: available}
	}

	for _, argument := range workflow.Arguments {
		if argument.Required && strings.TrimSpace(args[argument.Name]) == "" {
			return Rendered{}, &MissingArgumentError{Workflow: name, Argument: argument.Name}
		}
	}

	prompt := workflow.Template
	prompt = strings.ReplaceAll(prompt, "{time_filter}", prefixed(" for ", args["time_period"]))
	prompt = strings.ReplaceAll(prompt, "{region_filter}", prefixed("Focus on region: ", args["region"]))
	prompt = strings.ReplaceAll(prompt, "{segment_filter}", prefixed("Focus on segment: ", args["segment"]))
	prompt = strings.ReplaceAll(prompt, "{table_list}", parenthesized(args["tables"]))
	for _, argument := range workflow.Arguments {
		prompt = strings.ReplaceAll(prompt, "{"+argument.Name+"}", args[argument.Name])
	}

	return Rendered{Name: workflow.Name, Description: workflow.Description, Prompt: prompt}, nil
}

func prefixed(prefix, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return prefix + value
}

func parenthesized(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return " (" + value + ")"
}

var builtins = []Workflow{
	{
		Name:        "sales_analysis",
		Description: "Comprehensive sales performance analysis workflow",
		Arguments: []Argument{
			{Name: "time_period", Description: "Time period to analyze (e.g. '2024', 'last_quarter')"},
			{Name: "region", Description: "Region to focus on (optional)"},
		},
		Template: `Perform a comprehensive sales analysis with the following steps:

1. **Overview**: use the execute-query tool to get total revenue, transaction count, and average order value{time_filter}.
2. **Top Products**: query the top 10 products by revenue{time_filter}.
3. **Regional Breakdown**: get revenue breakdown by region{time_filter}.
4. **Trends**: analyze monthly revenue trends with analyze-table on the sales table.
5. **Anomalies**: run detect-anomalies on the revenue column to find unusual transactions.
6. **Insights**: use synthesize-insight for AI-backed recommendations.

{region_filter}
Present findings as a structured report with charts where applicable.`,
	},
	{
		Name:        "customer_segmentation",
		Description: "Customer segmentation and lifetime value analysis",
		Arguments: []Argument{
			{Name: "segment", Description: "Customer segment to focus on (optional)"},
		},
		Template: `Perform customer segmentation analysis:

1. Use execute-query to read the customer_summary view.
2. Analyze customer segments by total revenue, order frequency, and average order value.
3. Identify the top 10 customers by lifetime revenue.
4. Compare segment performance (Enterprise vs Mid-Market vs SMB vs Startup vs Government).
5. Use synthesize-insight to identify churn risks and growth opportunities.
{segment_filter}
Return a segmentation report with actionable recommendations.`,
	},
	{
		Name:        "revenue_forecast",
		Description: "Revenue trend analysis and projection",
		Template: `Analyze revenue trends and provide forecasting inputs:

1. Query the monthly_revenue view for all available periods.
2. Use analyze-table to identify trends, seasonality, and growth rates.
3. Calculate month-over-month and year-over-year growth.
4. Run detect-anomalies on monthly revenue to identify unusual months.
5. Use synthesize-insight with the question: "Based on historical trends, what is the revenue outlook?"

Present the analysis with trend charts and growth projections.`,
	},
	{
		Name:        "performance_dashboard",
		Description: "Generate a comprehensive KPI dashboard",
		Arguments: []Argument{
			{Name: "time_period", Description: "Dashboard time period"},
		},
		Template: `Build a performance dashboard with these KPIs:

1. **Revenue KPIs**: total revenue, MoM growth, YoY growth
2. **Transaction KPIs**: count, average value, channel mix
3. **Product KPIs**: top categories, product mix, discount impact
4. **Customer KPIs**: active customers, new vs returning, segment distribution
5. **Profitability**: gross margin, profit by category, cost trends

Use execute-query for each KPI, then synthesize-insight for the executive summary.
{time_filter}
Format as a dashboard-ready data package.`,
	},
	{
		Name:        "custom_analysis",
		Description: "Build a custom analysis workflow from scratch",
		Arguments: []Argument{
			{Name: "objective", Description: "What do you want to analyze?", Required: true},
			{Name: "tables", Description: "Which tables to use (comma-separated)"},
		},
		Template: `Custom analysis workflow:

Objective: {objective}

Steps:
1. First, explore the available datasets.
2. Examine the schema of relevant tables{table_list}.
3. Query the data based on the objective.
4. Use analyze-table for statistical analysis.
5. Use detect-anomalies if time-series patterns are relevant.
6. Use synthesize-insight for AI-backed conclusions.

Adapt the steps as needed to best answer the objective.`,
	},
}
