package console

/*
Status console for the simulator. Two implementations share one interface:
a gocui view for the full screen UI and a plain stdout writer for headless
runs and tests. Other parts of the simulator log through the console using
a string channel, so writes never block the execute loop on terminal IO.
*/

// Console is the status output the simulator writes to.
type Console interface {
	WriteConsole(msg string) error
}
