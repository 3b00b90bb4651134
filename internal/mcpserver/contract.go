package mcpserver

// PostingGuidelines describes what a well-formed question looks like on the
// board, for LLM consumers drafting or triaging posts.
const PostingGuidelines = `# Club Q&A Posting Guidelines

## Questions

- **Title**: at least 10 characters after trimming. Say what you tried and
  what failed, e.g. "SQL Injection 방어 방법".
- **Body**: at least 20 characters. Include the exact error, the tool
  versions and the smallest input that reproduces the problem.
- **Tags**: pick one or more entries from the tag catalog (see the
  ` + "`" + `list_tags` + "`" + ` tool). Free-form tags are rejected.

## Answers and comments

- Answers and comments must not be empty.
- Comments are append-only; post a new comment instead of editing.
- Only the question author can accept an answer. Accepting a different
  answer moves the mark; accepting the accepted answer clears it.

## Markdown import format

` + "```" + `markdown
---
title: Buffer overflow basics on x86-64
tags:
  - Pwnable
  - Reversing
author: alice          # optional; defaults to the importing user
---

Body text in standard Markdown.
` + "```" + `

## Search tips

- ` + "`" + `status` + "`" + ` is ALL, ANSWERED or UNANSWERED (based on an accepted answer).
- Tag filters match questions carrying ANY of the selected tags.
- Sort by createdAt, updatedAt, viewCount, answerCount or title.
`
