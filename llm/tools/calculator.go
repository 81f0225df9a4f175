package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/expr-lang/expr"
)

// CalculatorToolName is the name of the calculator tool
const CalculatorToolName = "calculator"

// CalculatorParams defines parameters for evaluating an expression.
type CalculatorParams struct {
	Expression string `json:"expression" jsonschema:"description=Arithmetic expression to evaluate such as (7.5 + 8.1) / 2 or sqrt(2) * pi"`
	Precision  int    `json:"precision,omitempty" jsonschema:"description=Number of decimal places for non-integer results (default: shortest exact representation)"`
}

const calculatorDescription = `Evaluate an arithmetic expression and return the result.

CAPABILITIES:
- Operators: + - * / % ** and parentheses, comparisons and boolean logic
- Functions: sqrt, pow, log, log10, exp, sin, cos, tan, abs, floor, ceil, round, min, max
- Constants: pi, e

PARAMETERS:
- expression (required): The expression to evaluate
- precision (optional): Decimal places for floating point results

EXAMPLES:
- Average rating: {"expression": "(7.8 + 8.2 + 6.9) / 3", "precision": 2}
- Duration end: {"expression": "17 * 60 + 45 + 128"}`

// calculatorEnv is the evaluation environment exposed to expressions.
var calculatorEnv = map[string]any{
	"pi":    math.Pi,
	"e":     math.E,
	"sqrt":  unary(math.Sqrt),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"exp":   unary(math.Exp),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"pow": func(x, y any) (float64, error) {
		fx, err := toFloat(x)
		if err != nil {
			return 0, err
		}
		fy, err := toFloat(y)
		if err != nil {
			return 0, err
		}
		return math.Pow(fx, fy), nil
	},
}

func unary(fn func(float64) float64) func(any) (float64, error) {
	return func(x any) (float64, error) {
		f, err := toFloat(x)
		if err != nil {
			return 0, err
		}
		return fn(f), nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// Calculate evaluates expression and formats the result.
func Calculate(expression string, precision int) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", fmt.Errorf("expression is required")
	}

	program, err := expr.Compile(expression, expr.Env(calculatorEnv))
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}
	out, err := expr.Run(program, calculatorEnv)
	if err != nil {
		return "", fmt.Errorf("evaluation failed: %w", err)
	}

	return formatNumber(out, precision), nil
}

func formatNumber(v any, precision int) string {
	switch n := v.(type) {
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		if precision > 0 {
			return strconv.FormatFloat(n, 'f', precision, 64)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// CalculatorFunc implements the calculator tool.
func CalculatorFunc(_ context.Context, params CalculatorParams) (string, error) {
	result, err := Calculate(params.Expression, params.Precision)
	if err != nil {
		return Error(err.Error())
	}
	return Success(fmt.Sprintf("%s = %s", strings.TrimSpace(params.Expression), result), nil)
}

// GetCalculatorTool returns the calculator tool.
func GetCalculatorTool() (tool.InvokableTool, error) {
	return utils.InferTool(CalculatorToolName, calculatorDescription, CalculatorFunc)
}
