// Package compiler is the front end of sysyc: a lexer, parser and IR
// translator for a SysY subset, plus the pipeline that drives the later
// stages.
//
// Pipeline: source → Lex → Parse → Translate → IR text → koopa.Parse →
// riscv.Generate (or llvm.Lower) → assembly text
package compiler
