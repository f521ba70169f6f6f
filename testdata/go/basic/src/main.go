package main // codeql

import "fmt" // noqa

/*
codeql
*/
func main() {
	fmt.Println("hi") // lgtm codeql[go/x]
	// noqa
}
