package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// CurrentTimeToolName is the name of the clock tool
const CurrentTimeToolName = "current_time"

// CurrentTimeParams defines parameters for the clock tool.
type CurrentTimeParams struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name such as Europe/Madrid (default: UTC)"`
}

// now is the clock used by the tool; replaced in tests.
var now = time.Now

// CurrentTime returns the current time in tz (UTC when empty).
func CurrentTime(tz string) (time.Time, error) {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return now().In(loc), nil
}

// CurrentTimeFunc implements the clock tool.
func CurrentTimeFunc(_ context.Context, params CurrentTimeParams) (string, error) {
	t, err := CurrentTime(params.Timezone)
	if err != nil {
		return Error(err.Error())
	}
	return Success(fmt.Sprintf("%s (%s)", t.Format(time.RFC3339), t.Weekday()), nil)
}

// GetCurrentTimeTool returns the clock tool.
func GetCurrentTimeTool() (tool.InvokableTool, error) {
	return utils.InferTool(
		CurrentTimeToolName,
		"Get the current date and time (ISO 8601) with the weekday, optionally in a given IANA timezone. Use it to work out dates such as the coming Saturday or today's YYYYMMDD.",
		CurrentTimeFunc,
	)
}
