package taskrun

import (
	"encoding/gob"
	"os"
)

// CacheName is the file the parsed task list is cached in, next to the
// tasks.star file it was parsed from.
const CacheName = ".task-cache"

func init() {
	gob.Register(ShellCmd{})
	gob.Register(RefCmd{})
}

// WriteCache stores the option values and the parsed task list so wrapper
// scripts can reuse the parse result.
func WriteCache(file string, options map[string]string, list *TaskList) error {
	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return err
	}

	return encoder.Encode(list)
}

// ReadCache loads a cache written by WriteCache. Callers treat any error as
// a stale cache and fall back to parsing the script.
func ReadCache(file string) (map[string]string, *TaskList, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, err
	}

	result := NewTaskList()
	err = decoder.Decode(result)
	if err != nil {
		return options, nil, err
	}

	return options, result, nil
}
