// Command aqb shows AI provider usage limits in the terminal, projects when
// each limit will be reached and keeps a daily history of usage.
//
// Usage:
//
//	# Start the terminal dashboard
//	aqb
//
//	# Print the last 30 days of daily averages
//	aqb history --days 30
//
//	# Roll up closed days and apply retention once
//	aqb rollup
//
//	# Show version information
//	aqb version
package main

func main() {
	Execute()
}
