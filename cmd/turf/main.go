// Command turf runs the turf booking API and its maintenance tasks.
package main

func main() {
	Execute()
}
