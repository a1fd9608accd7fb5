// Package testsupport offers stubs and on-disk fixtures shared by package tests.
package testsupport
