// Command arbor grows branch graphs from L-system grammars or space
// colonization and bakes them into distance-field texture maps.
package main

func main() {
	Execute()
}
