package main

import (
	"github.com/tatsuya4559/iambrowser/pkg/taskrun/cmd"
)

func main() {
	cmd.Execute()
}
