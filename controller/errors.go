package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("failed to login")

	ErrCreateChat      = errors.New("failed to create a chat")
	ErrGetChats        = errors.New("failed to get chats")
	ErrDeleteChat      = errors.New("failed to delete a chat")
	ErrGetChatMessages = errors.New("failed to get chat messages")
	ErrUpdateChatTitle = errors.New("failed to update chat title")
	ErrGetChatUsage    = errors.New("failed to get chat usage")

	ErrStartCompletion = errors.New("failed to start completion")
	ErrRegenerate      = errors.New("failed to regenerate message")
)
