// Command portsweep is the CLI front end for the concurrent port-scan
// engine in internal/scan.
package main

func main() {
	Execute()
}
