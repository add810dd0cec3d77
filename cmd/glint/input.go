package main

import (
	"fmt"
	"io"
	"os"
)

// input is one document to process.
type input struct {
	name string
	src  string
}

// readInputs reads the named files, or stdin when there are none.
func readInputs(stdin io.Reader, files []string) ([]input, error) {
	if len(files) == 0 {
		src, err := readFromStdin(stdin)
		if err != nil {
			return nil, fmt.Errorf("error reading from stdin: %w", err)
		}
		return []input{{name: "-", src: src}}, nil
	}
	inputs := make([]input, 0, len(files))
	for _, file := range files {
		src, err := readFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading file '%s': %w", file, err)
		}
		inputs = append(inputs, input{name: file, src: src})
	}
	return inputs, nil
}

// readFromStdin reads all input from stdin.
func readFromStdin(stdin io.Reader) (string, error) {
	bytes, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// readFromFile reads the contents of a file.
func readFromFile(filename string) (string, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// writeOutput runs write against the named file, or fallback when filename
// is empty, and reports an error closing the file like any other.
func writeOutput(filename string, fallback io.Writer, write func(io.Writer) error) error {
	out, closeOutput, err := openOutput(filename, fallback)
	if err != nil {
		return err
	}
	return finishOutput(write(out), closeOutput, filename)
}

// finishOutput closes the output after a write that returned err.
func finishOutput(err error, closeOutput func() error, filename string) error {
	if err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("error closing output file '%s': %w", filename, err)
	}
	return nil
}

// openOutput returns the file to write to, or fallback when filename is
// empty. The returned close function is never nil.
func openOutput(filename string, fallback io.Writer) (io.Writer, func() error, error) {
	if filename == "" {
		return fallback, func() error { return nil }, nil
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating output file '%s': %w", filename, err)
	}
	return file, file.Close, nil
}
