package ai

// Schedule translation prompts
const (
	ScheduleTranslationSystemPrompt = `You convert natural-language radio show schedules into standard 5-field cron expressions
(minute hour day-of-month month day-of-week, Sunday = 0).

Rules:
- Times are local station time. "8:00 AM" is hour 8, "6:30 PM" is minute 30 hour 18.
- "weekdays" means 1-5, "weekends" means 0,6, "daily" or "every day" means *.
- List several days with commas in day-of-week order, e.g. "1,3,5".
- The "description" field is the canonical English rendering of the schedule, phrased so that
  translating it again yields exactly the same cron expression.
- If the text does not describe a recurring weekly or daily schedule, return only an "error" field
  explaining what is missing.`

	ScheduleTranslationUserPrompt = `Translate this schedule:

%s

Respond in JSON format, either
{
  "cron": "<minute> <hour> <day-of-month> <month> <day-of-week>",
  "description": "<canonical description>"
}
or
{
  "error": "<why the schedule cannot be translated>"
}`
)
