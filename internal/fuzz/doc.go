
// Package fuzztests houses Go fuzz harnesses that exercise the snapshot
// pipeline (bytes -> decode -> validate -> liveness). Its goal is to smoke
// test robustness and guard against panics or allocator explosions on
// arbitrary inputs.
//
// Назначение: запускать fuzz-обработчики, которые подают байты в декодер
// снапшотов и прогоняют чистые документы через анализ.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/birfile, internal/liveness,
// internal/diag.

package fuzztests
