package models

import "errors"

var (
	// ErrInvalidInput некорректные входные данные.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream ошибка внешнего сервиса (база данных, Spotify).
	ErrUpstream = errors.New("upstream service failure")
	// ErrNotFound запрошенный ресурс не найден.
	ErrNotFound = errors.New("not found")
	// ErrConflict ресурс уже существует.
	ErrConflict = errors.New("already exists")
	// ErrUnauthorized пользователь не аутентифицирован.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden недостаточно прав или пользователь заблокирован.
	ErrForbidden = errors.New("forbidden")
)
