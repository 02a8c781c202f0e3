// Command reabind serves a simulated DAW host and calls host functions
// from outside it.
package main

func main() {
	Execute()
}
