// Command dvbctl programs and inspects a DVB-S2 encoder core.
package main

import "github.com/sarchlab/dvbenc/dvbctl/cmd"

func main() {
	cmd.Execute()
}
