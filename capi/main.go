package main

func main() {} // Required for c-shared build mode
