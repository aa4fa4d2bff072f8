package main

import (
	"github.com/tatsuya4559/iambrowser/pkg/tool"
)

func main() {
	tool.Execute()
}
