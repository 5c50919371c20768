/*
Package log provides global output control across netresolv. Logging comes in four
levels: Silent, Major, Minor and Debug with each level more detailed than the
previous. Levels are inclusive, so, e.g., if MinorLevel is set that implies MajorLevel
logging.

Library packages only ever log at Minor or Debug. Major is reserved for the program
and for events an operator always wants to see, such as listener start-up and periodic
statistics.

The Print and Printf interfaces are similar to the fmt versions with a few subtle
differences due to the need to prefix lines. If the resulting string contains multiple
lines they are all printed with the prefix for the logging level and trailing newlines
are trimmed.

Resolution requests run concurrently so all writes to the output are serialized. Tests
which capture output should use log.SetOut() with something like mock.IOWriter and read
it back once the goroutines of interest have completed.
*/
package log
