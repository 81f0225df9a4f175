// Package prompts holds the persona and task text given to the movie advisor.
package prompts

import "fmt"

// Source URLs the advisor is told about.
const (
	ListingsURL = "https://sadecines.com/"
	DiaryURL    = "https://letterboxd.com/gonzalo123/films/diary/"
	TheatersURL = "https://letterboxd.com/gonzalo123/list/cine-2025/detail/"
)

// SystemPrompt defines the persona and the user's preferences.
const SystemPrompt = `
You are an expert movie recommendation assistant to help me decide what to watch.

You have access to the following URLs and available movie analyses:
- ` + ListingsURL + ` With the movie schedules in my city's cinemas.
    Sadecines has a checkbox to filter the day of the week, so you can select Saturday.
- ` + DiaryURL + ` Movies I have watched and rated.
- ` + TheatersURL + ` Movies I have already seen in theaters in 2025.

You must take into account the user's preferences:
- Avoid movies in the "children" and "family" genres.
- I don't really like intimate or drama movies, except for rare exceptions.
- I like entertaining movies, action, science fiction, adventure, and comedies.

Take into account when making recommendations:
- The ratings of the movies on IMDb and Metacritic.
- But mainly consider my personal preferences,
    which can be seen in the list of movies I have watched and rated on Letterboxd.
`

// ReportColumns are the table columns the report must contain, in order.
var ReportColumns = []string{
	"Title",
	"Genre",
	"IMDb Rating",
	"Metacritic Rating",
	"Summary",
	"Start Time",
	"End Time",
}

const questionTemplate = `
Analyze the movies showing this Saturday in the first session.

Present only those you recommend, excluding those not relevant according to my preferences,
and order them from best to worst according to your criteria.

Show the result in a table with the following columns:
%s
Save the final report in a file named YYYYMMDD.md, following this structure:
%s/
    └ reports/
        └ YYYYMMDD.md       # Movie analysis of the day, format ` + "`YYYYMMDD`" + `
`

// Question returns the task prompt with the report tree rooted at baseDir.
func Question(baseDir string) string {
	var columns string
	for _, c := range ReportColumns {
		columns += "- " + c + "\n"
	}
	return fmt.Sprintf(questionTemplate, columns, baseDir)
}
